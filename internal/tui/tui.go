// Package tui is the Bubble Tea terminal interface: login, chat with
// streamed replies, the session switcher, and the admin panel.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/google/uuid"

	"github.com/hara-ai/hara/internal/admin"
	"github.com/hara-ai/hara/internal/chat"
	"github.com/hara-ai/hara/internal/config"
	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/speech"
	"github.com/hara-ai/hara/internal/user"
)

// Screen selects which view is on screen.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenChat
	ScreenSessions
	ScreenAdmin
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2
	helpLines      = 1
	promptLines    = 1
	minViewport    = 3
)

const maxHistory = 100

// Deps are the wired services the interface drives.
type Deps struct {
	Users   *user.Store
	Chat    *chat.Orchestrator
	Admin   *admin.Service
	Speaker *speech.Speaker
	Config  *config.Config
	Logger  log.Logger
}

// Model is the Bubble Tea model for the whole interface.
type Model struct {
	deps      Deps
	ctx       context.Context
	ctxCancel context.CancelFunc

	screen   Screen
	identity user.User

	styles   Styles
	markdown *markdownRenderer
	width    int
	height   int

	login loginForm

	input      textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap
	viewBuf    strings.Builder
	history    []string
	historyIdx int
	lastCtrlC  time.Time

	// In-flight reply, mirrored from orchestrator events.
	streamText  string
	streamMsgID uuid.UUID

	// Staged image attachment (data URI), consumed by the next send.
	pendingImage string

	// One-line notice under the chat (errors, confirmations).
	notice string

	sessionList []session.ChatSession
	sessionIdx  int

	adminOut []string
}

// New builds the interface. When a saved identity is present the login
// screen is skipped and that user's sessions are resumed.
func New(ctx context.Context, deps Deps, saved *user.Identity) (*Model, error) {
	if deps.Chat == nil || deps.Users == nil || deps.Config == nil {
		return nil, errors.New("tui.New: missing dependencies")
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Message Hara..."
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false
	plain := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{Focused: plain, Blurred: plain})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	theme := deps.Config.Theme
	m := &Model{
		deps:      deps,
		ctx:       ctx,
		ctxCancel: cancel,
		screen:    ScreenLogin,
		styles:    NewStyles(theme),
		markdown:  newMarkdownRenderer(80, theme),
		input:     ta,
		viewport:  vp,
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
		login:     newLoginForm(),
		history:   make([]string, 0, maxHistory),
		width:     80,
	}
	if saved != nil {
		if u, err := deps.Users.Get(saved.Username); err == nil && !u.IsSuspended {
			m.enterChat(u)
		} else if user.IsMaster(saved.Username) {
			m.enterChat(user.User{Username: user.MasterUsername, IsAdmin: true})
		}
	}
	return m, nil
}

// enterChat switches to the chat screen as the given user.
func (m *Model) enterChat(u user.User) {
	m.identity = u
	if err := m.deps.Chat.SetUser(u.Username); err != nil {
		m.deps.Logger.Error("resume sessions", "error", err)
	}
	m.screen = ScreenChat
	m.notice = ""
	m.rebuildChat()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.spinner.Tick,
		listenEvents(m.deps.Chat.Events()),
	}
	if m.screen == ScreenChat {
		cmds = append(cmds, m.input.Focus())
	}
	return tea.Batch(cmds...)
}

// busy reports whether a reply is being produced right now.
func (m *Model) busy() bool {
	return m.deps.Chat.State() != chat.StateIdle
}

// cleanup tears everything down and quits.
func (m *Model) cleanup() tea.Cmd {
	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}
	if m.deps.Speaker != nil {
		m.deps.Speaker.Stop()
	}
	m.deps.Chat.Close()
	return tea.Quit
}
