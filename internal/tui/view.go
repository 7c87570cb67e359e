package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/hara-ai/hara/internal/chat"
	"github.com/hara-ai/hara/internal/session"
)

// View implements tea.Model.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	switch m.screen {
	case ScreenLogin:
		m.viewBuf.WriteString(m.renderLogin())
	case ScreenSessions:
		m.viewBuf.WriteString(m.renderSessions())
	case ScreenAdmin:
		m.viewBuf.WriteString(m.renderAdmin())
	default:
		m.renderChat(&m.viewBuf)
	}

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

func (m *Model) renderChat(b *strings.Builder) {
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")
	b.WriteString(m.styles.Prompt.Render("> "))
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
}

// rebuildChat reconstructs the viewport from the active session plus the
// in-flight reply.
func (m *Model) rebuildChat() {
	m.rebuildChatWithPending("")
}

// rebuildChatWithPending additionally shows a user message that was just
// submitted but not yet visible through the store.
func (m *Model) rebuildChatWithPending(pending string) {
	var b strings.Builder

	b.WriteString(m.styles.RenderBanner())
	b.WriteString("\n")
	b.WriteString(m.styles.RenderWelcomeTips())
	b.WriteString("\n")

	active := m.deps.Chat.Active()
	if active.Title != "" && active.Title != session.TitleSentinel {
		b.WriteString(m.styles.Title.Render("── " + active.Title + " ──"))
		b.WriteString("\n\n")
	}

	seenPending := pending == ""
	for _, msg := range active.Messages {
		switch {
		case msg.Role == session.RoleUser:
			if msg.Content == pending {
				seenPending = true
			}
			b.WriteString(m.styles.User.Render("You> "))
			b.WriteString(msg.Content)
			if msg.Image != "" {
				b.WriteString("\n")
				b.WriteString(m.styles.Dim.Render("  [attached image]"))
			}
		case msg.Streaming:
			// The live reply is rendered below from streamText.
			continue
		default:
			b.WriteString(m.styles.Assistant.Render("Hara> "))
			b.WriteString(m.markdown.Render(msg.Content))
			if msg.Image != "" {
				b.WriteString("\n")
				b.WriteString(m.styles.Dim.Render("  [image] " + msg.Image))
			}
		}
		b.WriteString("\n\n")
	}

	if !seenPending {
		b.WriteString(m.styles.User.Render("You> "))
		b.WriteString(pending)
		b.WriteString("\n\n")
	}

	switch m.deps.Chat.State() {
	case chat.StateStreaming:
		b.WriteString(m.styles.Assistant.Render("Hara> "))
		if m.streamText != "" {
			b.WriteString(m.streamText)
		} else {
			b.WriteString(m.spinner.View())
		}
		b.WriteString("\n\n")
	case chat.StateSending:
		b.WriteString(m.spinner.View())
		b.WriteString(" Thinking...\n\n")
	case chat.StateImageGenerating:
		b.WriteString(m.spinner.View())
		b.WriteString(" Painting your image...\n\n")
	}

	if m.notice != "" {
		b.WriteString(m.styles.System.Render(m.notice))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.styles.RenderBanner())
	b.WriteString("\n")

	mode := "Sign in"
	if m.login.register {
		mode = "Create account"
	}
	b.WriteString(m.styles.Title.Render("  " + mode))
	b.WriteString("\n\n")
	b.WriteString("  " + m.login.username.View() + "\n")
	b.WriteString("  " + m.login.password.View() + "\n\n")

	if m.login.pending {
		b.WriteString(m.styles.System.Render("  signing in..."))
		b.WriteString("\n")
	}
	if m.login.err != "" {
		b.WriteString(m.styles.Error.Render("  " + m.login.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Dim.Render("  tab: switch field  •  enter: submit  •  ctrl+r: toggle sign in / register  •  ctrl+d: exit"))
	return b.String()
}

func (m *Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Conversations"))
	b.WriteString("\n\n")

	if len(m.sessionList) == 0 {
		b.WriteString(m.styles.Dim.Render("  no conversations yet"))
		b.WriteString("\n")
	}
	for i, s := range m.sessionList {
		line := fmt.Sprintf("%s  (%d messages, %s)", s.Title, len(s.Messages), s.UpdatedAt.Format("Jan 2 15:04"))
		if i == m.sessionIdx {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		m.keys.Navigate, m.keys.Select, m.keys.NewSession, m.keys.Delete, m.keys.EscBack,
	}))
	return b.String()
}

func (m *Model) renderAdmin() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Admin Panel"))
	b.WriteString("\n\n")

	// Show the last screenful of output.
	out := m.adminOut
	if maxLines := max(m.height-8, 5); len(out) > maxLines {
		out = out[len(out)-maxLines:]
	}
	for _, line := range out {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")
	b.WriteString(m.styles.Prompt.Render("admin> "))
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Dim.Render("esc: back to chat"))
	return b.String()
}

func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

func (m *Model) renderStatusBar() string {
	var bindings []key.Binding
	if m.busy() {
		bindings = []key.Binding{m.keys.Cancel, m.keys.ScrollUp, m.keys.ScrollDown}
	} else {
		bindings = []key.Binding{
			m.keys.Submit, m.keys.NewLine, m.keys.History,
			m.keys.Cancel, m.keys.Quit, m.keys.ScrollUp,
		}
	}
	left := m.help.ShortHelpView(bindings)
	who := m.identity.Username
	if m.identity.IsAdmin {
		who += " (admin)"
	}
	return left + m.styles.Dim.Render("  •  "+who)
}
