package tui

import (
	tea "charm.land/bubbletea/v2"

	"github.com/hara-ai/hara/internal/chat"
	"github.com/hara-ai/hara/internal/user"
)

type chatEventMsg struct {
	event chat.Event
}

type sendResultMsg struct {
	err error
}

type speakResultMsg struct {
	err error
}

type loginResultMsg struct {
	user user.User
	err  error
}

// listenEvents waits for the next orchestrator event. The Update loop
// re-issues it after every event, giving a continuous subscription.
func listenEvents(ch <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return chatEventMsg{event: ev}
	}
}

// sendCmd submits one turn, with any staged image attachment.
// Rejections, including ErrBusy, come back as a sendResultMsg and are
// shown as a notice, not a crash.
func (m *Model) sendCmd(text, image string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return sendResultMsg{err: m.deps.Chat.Send(ctx, text, image)}
	}
}

// speakCmd reads the last assistant reply aloud. The caller checks that
// a speaker is configured before issuing it.
func (m *Model) speakCmd(text string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return speakResultMsg{err: m.deps.Speaker.Speak(ctx, text)}
	}
}

// loginCmd runs authentication off the event loop.
func (m *Model) loginCmd(username, password string, register bool) tea.Cmd {
	return func() tea.Msg {
		var (
			u   user.User
			err error
		)
		if register {
			u, err = m.deps.Users.Register(username, password)
		} else {
			u, err = m.deps.Users.Login(username, password)
		}
		return loginResultMsg{user: u, err: err}
	}
}
