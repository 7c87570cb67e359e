package tui

import (
	"errors"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/hara-ai/hara/internal/user"
)

// loginForm is the username/password screen. Tab moves between fields,
// Ctrl+R flips between sign-in and registration.
type loginForm struct {
	username textinput.Model
	password textinput.Model
	focused  int
	register bool
	err      string
	pending  bool
}

func newLoginForm() loginForm {
	un := textinput.New()
	un.Placeholder = "username"
	un.CharLimit = 32
	un.Focus()

	pw := textinput.New()
	pw.Placeholder = "password"
	pw.CharLimit = 64
	pw.EchoMode = textinput.EchoPassword

	return loginForm{username: un, password: pw}
}

func (f loginForm) Update(msg tea.Msg) (loginForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.focused == 0 {
		f.username, cmd = f.username.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

func (f *loginForm) toggleFocus() tea.Cmd {
	f.focused = 1 - f.focused
	if f.focused == 0 {
		f.password.Blur()
		return f.username.Focus()
	}
	f.username.Blur()
	return f.password.Focus()
}

func (m *Model) handleLoginKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 && k.Code == 'r' {
		m.login.register = !m.login.register
		m.login.err = ""
		return m, nil
	}

	switch k.Code {
	case tea.KeyTab:
		return m, m.login.toggleFocus()

	case tea.KeyEnter:
		if m.login.pending {
			return m, nil
		}
		username := strings.TrimSpace(m.login.username.Value())
		password := m.login.password.Value()
		if username == "" || password == "" {
			m.login.err = "username and password are required"
			return m, nil
		}
		m.login.pending = true
		m.login.err = ""
		return m, m.loginCmd(username, password, m.login.register)
	}

	var cmd tea.Cmd
	m.login, cmd = m.login.Update(msg)
	return m, cmd
}

func (m *Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.login.pending = false
	if msg.err != nil {
		m.login.err = loginErrorText(msg.err)
		return m, nil
	}
	if err := user.SaveIdentity(m.deps.Config.DataDir, user.Identity{
		Username: msg.user.Username,
		IsAdmin:  msg.user.IsAdmin,
	}); err != nil {
		m.deps.Logger.Warn("save identity", "error", err)
	}
	m.enterChat(msg.user)
	return m, m.input.Focus()
}

func loginErrorText(err error) string {
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, user.ErrUsernameTaken):
		return "that username is taken"
	case errors.Is(err, user.ErrReservedUsername):
		return "that username is reserved"
	case errors.Is(err, user.ErrSuspended):
		return err.Error()
	default:
		return err.Error()
	}
}
