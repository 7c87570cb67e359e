package tui

import (
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/hara-ai/hara/internal/chat"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inputHeight := m.input.Height() + promptLines
		fixed := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixed, minViewport)
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(vpHeight)
		m.input.SetWidth(msg.Width - 4)
		m.help.SetWidth(msg.Width)
		m.markdown.UpdateWidth(msg.Width)
		m.rebuildChat()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			m.rebuildChat()
		}
		return m, cmd

	case chatEventMsg:
		return m.handleChatEvent(msg.event)

	case sendResultMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			m.rebuildChat()
		}
		return m, nil

	case speakResultMsg:
		if msg.err != nil {
			m.notice = "speech: " + msg.err.Error()
			m.rebuildChat()
		}
		return m, nil

	case loginResultMsg:
		return m.handleLoginResult(msg)
	}

	return m.updateFocusedInput(msg)
}

// handleChatEvent folds one orchestrator event into the view and keeps
// listening for the next.
func (m *Model) handleChatEvent(ev chat.Event) (tea.Model, tea.Cmd) {
	listen := listenEvents(m.deps.Chat.Events())

	if ev.SessionID != m.deps.Chat.Active().ID {
		return m, listen
	}
	if ev.Final {
		m.streamText = ""
		m.streamMsgID = uuid.Nil
		if ev.Err != nil {
			m.deps.Logger.Debug("reply finished with error", "error", ev.Err)
		}
		m.rebuildChat()
		m.viewport.GotoBottom()
		return m, tea.Batch(listen, m.input.Focus())
	}
	m.streamText = ev.Text
	m.streamMsgID = ev.MessageID
	m.rebuildChat()
	m.viewport.GotoBottom()
	return m, listen
}

// updateFocusedInput forwards everything else to whichever text widget
// owns the keyboard.
func (m *Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case ScreenLogin:
		m.login, cmd = m.login.Update(msg)
	case ScreenChat, ScreenAdmin:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}
