package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
)

const adminUsage = "commands: users | stats | adduser <name> <pw> [admin] | deluser <name> | suspend <name> [reason] | unsuspend <name> | mkadmin <name> | rmadmin <name> | clearsessions | setkey <key> | clearkey"

func (m *Model) openAdmin() {
	m.adminOut = []string{adminUsage}
	m.screen = ScreenAdmin
	m.input.Reset()
	m.input.Placeholder = "admin command..."
}

func (m *Model) closeAdmin() tea.Cmd {
	m.screen = ScreenChat
	m.input.Reset()
	m.input.Placeholder = "Message Hara..."
	m.rebuildChat()
	return m.input.Focus()
}

func (m *Model) handleAdminKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()
	switch k.Code {
	case tea.KeyEscape:
		return m, m.closeAdmin()
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line != "" {
			m.runAdminCommand(line)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// runAdminCommand executes one line from the admin prompt and appends
// the result to the panel output.
func (m *Model) runAdminCommand(line string) {
	out := func(format string, args ...any) {
		m.adminOut = append(m.adminOut, fmt.Sprintf(format, args...))
	}
	fields := strings.Fields(line)
	actor := m.identity
	svc := m.deps.Admin

	fail := func(err error) {
		if err != nil {
			out("error: %v", err)
		} else {
			out("ok")
		}
	}

	switch fields[0] {
	case "users":
		users, err := svc.Users(actor)
		if err != nil {
			fail(err)
			return
		}
		for _, u := range users {
			flags := ""
			if u.IsAdmin {
				flags += " [admin]"
			}
			if u.IsSuspended {
				flags += " [suspended: " + u.SuspendedReason + "]"
			}
			out("%s%s", u.Username, flags)
		}
		if len(users) == 0 {
			out("no users")
		}

	case "stats":
		stats, err := svc.Stats(actor)
		if err != nil {
			fail(err)
			return
		}
		out("users: %d  sessions: %d  messages: %d  store: %d bytes",
			stats.Users, stats.Sessions, stats.Messages, stats.StoreSize)

	case "adduser":
		if len(fields) < 3 {
			out("usage: adduser <name> <pw> [admin]")
			return
		}
		isAdmin := len(fields) > 3 && fields[3] == "admin"
		_, err := svc.CreateUser(actor, fields[1], fields[2], isAdmin)
		fail(err)

	case "deluser":
		if len(fields) != 2 {
			out("usage: deluser <name>")
			return
		}
		fail(svc.DeleteUser(actor, fields[1]))

	case "suspend":
		if len(fields) < 2 {
			out("usage: suspend <name> [reason]")
			return
		}
		reason := strings.Join(fields[2:], " ")
		fail(svc.Suspend(actor, fields[1], reason))

	case "unsuspend":
		if len(fields) != 2 {
			out("usage: unsuspend <name>")
			return
		}
		fail(svc.Unsuspend(actor, fields[1]))

	case "mkadmin":
		if len(fields) != 2 {
			out("usage: mkadmin <name>")
			return
		}
		fail(svc.SetAdmin(actor, fields[1], true))

	case "rmadmin":
		if len(fields) != 2 {
			out("usage: rmadmin <name>")
			return
		}
		fail(svc.SetAdmin(actor, fields[1], false))

	case "clearsessions":
		fail(svc.ClearAllSessions(actor))

	case "setkey":
		if len(fields) != 2 {
			out("usage: setkey <key>")
			return
		}
		fail(svc.SetGlobalKey(actor, fields[1]))

	case "clearkey":
		fail(svc.SetGlobalKey(actor, ""))

	case "help":
		out(adminUsage)

	default:
		out("unknown command %q. %s", fields[0], adminUsage)
	}
}
