package tui

import (
	tea "charm.land/bubbletea/v2"
)

func (m *Model) openSessions() {
	m.sessionList = m.deps.Chat.Sessions()
	m.sessionIdx = 0
	active := m.deps.Chat.Active().ID
	for i, s := range m.sessionList {
		if s.ID == active {
			m.sessionIdx = i
			break
		}
	}
	m.screen = ScreenSessions
}

func (m *Model) handleSessionsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	switch k.Code {
	case tea.KeyEscape:
		m.screen = ScreenChat
		m.rebuildChat()
		return m, m.input.Focus()

	case tea.KeyUp:
		if m.sessionIdx > 0 {
			m.sessionIdx--
		}
		return m, nil

	case tea.KeyDown:
		if m.sessionIdx < len(m.sessionList)-1 {
			m.sessionIdx++
		}
		return m, nil

	case tea.KeyEnter:
		if len(m.sessionList) == 0 {
			return m, nil
		}
		if err := m.deps.Chat.SelectSession(m.sessionList[m.sessionIdx].ID); err != nil {
			m.notice = err.Error()
		}
		m.streamText = ""
		m.pendingImage = ""
		m.screen = ScreenChat
		m.rebuildChat()
		m.viewport.GotoBottom()
		return m, m.input.Focus()

	case 'n':
		if _, err := m.deps.Chat.NewSession(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.streamText = ""
		m.pendingImage = ""
		m.screen = ScreenChat
		m.rebuildChat()
		return m, m.input.Focus()

	case 'x':
		if len(m.sessionList) == 0 {
			return m, nil
		}
		if err := m.deps.Chat.DeleteSession(m.sessionList[m.sessionIdx].ID); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.sessionList = m.deps.Chat.Sessions()
		if m.sessionIdx >= len(m.sessionList) && m.sessionIdx > 0 {
			m.sessionIdx--
		}
		return m, nil
	}
	return m, nil
}
