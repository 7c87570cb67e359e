package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/hara-ai/hara/internal/config"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/user"
)

// Slash commands available in the chat input.
const (
	cmdHelp     = "/help"
	cmdNew      = "/new"
	cmdAttach   = "/attach"
	cmdSessions = "/sessions"
	cmdSpeak    = "/speak"
	cmdStop     = "/stop"
	cmdTheme    = "/theme"
	cmdAdmin    = "/admin"
	cmdLogout   = "/logout"
	cmdExit     = "/exit"
	cmdQuit     = "/quit"
)

type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscBack    key.Binding
	Navigate   key.Binding
	Select     key.Binding
	Delete     key.Binding
	NewSession key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		EscBack:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Navigate:   key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "navigate")),
		Select:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Delete:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		NewSession: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new chat")),
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			return m, m.cleanup()
		}
	}

	switch m.screen {
	case ScreenLogin:
		return m.handleLoginKey(msg)
	case ScreenSessions:
		return m.handleSessionsKey(msg)
	case ScreenAdmin:
		return m.handleAdminKey(msg)
	default:
		return m.handleChatKey(msg)
	}
}

func (m *Model) handleChatKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()
	switch k.Code {
	case tea.KeyEnter:
		if k.Mod&tea.ModShift == 0 {
			return m.handleSubmit()
		}

	case tea.KeyUp:
		if m.input.Line() == 0 {
			return m.navigateHistory(-1)
		}

	case tea.KeyDown:
		if m.input.Line() == m.input.LineCount()-1 {
			return m.navigateHistory(1)
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()
	if now.Sub(m.lastCtrlC) < time.Second {
		return m, m.cleanup()
	}
	m.lastCtrlC = now

	if m.busy() {
		// Abandon the in-flight reply by reselecting the same session;
		// the orchestrator cancels and drops the late completion.
		active := m.deps.Chat.Active().ID
		if err := m.deps.Chat.SelectSession(active); err == nil {
			m.streamText = ""
			m.notice = "(canceled)"
			m.rebuildChat()
		}
		return m, nil
	}
	m.input.Reset()
	return m, nil
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		return m.handleSlashCommand(text)
	}

	m.history = append(m.history, text)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.historyIdx = len(m.history)

	image := m.pendingImage
	m.pendingImage = ""
	m.input.Reset()
	m.notice = ""
	cmd := m.sendCmd(text, image)
	// The user message lands in the store synchronously inside Send, but
	// the command runs async; show it optimistically right away.
	m.rebuildChatWithPending(text)
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m *Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(cmd)
	m.input.Reset()

	switch fields[0] {
	case cmdHelp:
		m.notice = "Commands: /new /attach /sessions /speak /stop /theme /admin /logout /exit"

	case cmdNew:
		if _, err := m.deps.Chat.NewSession(); err != nil {
			m.notice = err.Error()
		}

	case cmdAttach:
		if len(fields) < 2 {
			m.notice = "usage: /attach <image file>"
			break
		}
		m.attach(strings.Join(fields[1:], " "))

	case cmdSessions:
		m.openSessions()

	case cmdSpeak:
		if m.deps.Speaker == nil {
			m.notice = "speech is not available in this build"
			break
		}
		if text := m.lastReply(); text != "" {
			m.rebuildChat()
			return m, m.speakCmd(text)
		}
		m.notice = "nothing to speak yet"

	case cmdStop:
		if m.deps.Speaker != nil {
			m.deps.Speaker.Stop()
		}

	case cmdTheme:
		m.toggleTheme()

	case cmdAdmin:
		if !m.identity.IsAdmin {
			m.notice = "admin access required"
			break
		}
		m.openAdmin()

	case cmdLogout:
		return m.logout()

	case cmdExit, cmdQuit:
		return m, m.cleanup()

	default:
		m.notice = "unknown command: " + fields[0]
	}
	m.rebuildChat()
	return m, nil
}

// lastReply returns the most recent finished assistant message.
func (m *Model) lastReply() string {
	msgs := m.deps.Chat.Active().Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == session.RoleModel && !msgs[i].Streaming && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return ""
}

func (m *Model) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m, nil
	}
	m.historyIdx += delta
	if m.historyIdx < 0 {
		m.historyIdx = 0
	}
	if m.historyIdx > len(m.history) {
		m.historyIdx = len(m.history)
	}
	if m.historyIdx == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[m.historyIdx])
		m.input.CursorEnd()
	}
	return m, nil
}

func (m *Model) toggleTheme() {
	theme := config.ThemeDark
	if m.deps.Config.Theme == config.ThemeDark {
		theme = config.ThemeLight
	}
	if err := m.deps.Config.SaveTheme(theme); err != nil {
		m.notice = err.Error()
		return
	}
	m.styles = NewStyles(theme)
	m.markdown = newMarkdownRenderer(m.width, theme)
	m.notice = "theme: " + theme
}

func (m *Model) logout() (tea.Model, tea.Cmd) {
	if err := user.ClearIdentity(m.deps.Config.DataDir); err != nil {
		m.deps.Logger.Warn("clear saved identity", "error", err)
	}
	m.identity = user.User{}
	m.screen = ScreenLogin
	m.login = newLoginForm()
	return m, nil
}
