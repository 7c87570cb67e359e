package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hara-ai/hara/internal/chat"
	"github.com/hara-ai/hara/internal/config"
	"github.com/hara-ai/hara/internal/imagegen"
	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/provider"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/speech"
	"github.com/hara-ai/hara/internal/user"
)

type stubProvider struct{}

func (stubProvider) Name() string                                              { return "stub" }
func (stubProvider) Init(context.Context, []session.Message) error             { return nil }
func (stubProvider) GenerateSpeech(context.Context, string) (speech.Clip, error) {
	return speech.Clip{}, speech.ErrUnsupported
}
func (stubProvider) SendStream(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
	return "ok", nil
}

type stubSource struct{}

func (stubSource) Provider() (provider.Provider, error) { return stubProvider{}, nil }

func newModel(t *testing.T) *Model {
	t.Helper()
	dir := t.TempDir()
	logger := log.NewNop()

	users, err := user.Open(dir, logger)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := session.Open(dir, logger)
	if err != nil {
		t.Fatal(err)
	}
	orch := chat.NewOrchestrator(sessions, stubSource{}, imagegen.NewWithSeed(1), logger)
	t.Cleanup(orch.Close)

	cfg := &config.Config{DataDir: dir, Theme: config.ThemeDark}
	m, err := New(context.Background(), Deps{
		Users:  users,
		Chat:   orch,
		Config: cfg,
		Logger: logger,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if m.ctxCancel != nil {
			m.ctxCancel()
		}
	})
	return m
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(context.Background(), Deps{}, nil); err == nil {
		t.Error("New accepted empty deps")
	}
}

func TestNewStartsAtLogin(t *testing.T) {
	m := newModel(t)
	if m.screen != ScreenLogin {
		t.Errorf("initial screen = %v, want login", m.screen)
	}
}

func TestSavedIdentitySkipsLogin(t *testing.T) {
	m := newModel(t)
	if _, err := m.deps.Users.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	m2, err := New(context.Background(), m.deps, &user.Identity{Username: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	defer m2.ctxCancel()
	if m2.screen != ScreenChat {
		t.Errorf("screen = %v, want chat", m2.screen)
	}
	if m2.identity.Username != "alice" {
		t.Errorf("identity = %q", m2.identity.Username)
	}
}

func TestNavigateHistory(t *testing.T) {
	m := newModel(t)
	m.history = []string{"first", "second"}
	m.historyIdx = len(m.history)

	m.navigateHistory(-1)
	if got := m.input.Value(); got != "second" {
		t.Errorf("after one up: %q", got)
	}
	m.navigateHistory(-1)
	if got := m.input.Value(); got != "first" {
		t.Errorf("after two ups: %q", got)
	}
	m.navigateHistory(-1)
	if got := m.input.Value(); got != "first" {
		t.Errorf("clamped at oldest: %q", got)
	}
	m.navigateHistory(1)
	m.navigateHistory(1)
	if got := m.input.Value(); got != "" {
		t.Errorf("back past newest: %q", got)
	}
}

func TestUnknownSlashCommand(t *testing.T) {
	m := newModel(t)
	m.enterChat(user.User{Username: "alice"})
	m.input.SetValue("/bogus")
	m.handleSubmit()
	if !strings.Contains(m.notice, "unknown command") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestAdminCommandRequiresAdmin(t *testing.T) {
	m := newModel(t)
	m.enterChat(user.User{Username: "alice"})
	m.input.SetValue("/admin")
	m.handleSubmit()
	if m.screen == ScreenAdmin {
		t.Error("non-admin reached the admin panel")
	}
	if !strings.Contains(m.notice, "admin access required") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestAttachStagesImageForNextSend(t *testing.T) {
	m := newModel(t)
	m.enterChat(user.User{Username: "alice"})

	path := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o600); err != nil {
		t.Fatal(err)
	}
	m.input.SetValue("/attach " + path)
	m.handleSubmit()
	if !strings.HasPrefix(m.pendingImage, "data:image/png;base64,") {
		t.Fatalf("pendingImage = %q", m.pendingImage)
	}
	if !strings.Contains(m.notice, "cat.png") {
		t.Errorf("notice = %q", m.notice)
	}

	// The staged image is consumed by the next message.
	m.input.SetValue("what is this")
	m.handleSubmit()
	if m.pendingImage != "" {
		t.Error("attachment not cleared after submit")
	}
}

func TestAttachRejectsNonImage(t *testing.T) {
	m := newModel(t)
	m.enterChat(user.User{Username: "alice"})
	m.input.SetValue("/attach notes.txt")
	m.handleSubmit()
	if m.pendingImage != "" {
		t.Errorf("pendingImage = %q, want empty", m.pendingImage)
	}
	if !strings.Contains(m.notice, "unsupported image type") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestSendCmdCarriesImage(t *testing.T) {
	m := newModel(t)
	m.enterChat(user.User{Username: "alice"})

	uri := "data:image/png;base64,aGk="
	msg := m.sendCmd("what is in this", uri)()
	res, ok := msg.(sendResultMsg)
	if !ok || res.err != nil {
		t.Fatalf("send result = %#v", msg)
	}
	var found bool
	for _, mm := range m.deps.Chat.Active().Messages {
		if mm.Role == session.RoleUser && mm.Image == uri {
			found = true
		}
	}
	if !found {
		t.Error("user message does not carry the attached image")
	}
}

func TestSpeakWithoutSpeaker(t *testing.T) {
	m := newModel(t)
	m.enterChat(user.User{Username: "alice"})
	m.input.SetValue("/speak")
	m.handleSubmit()
	if !strings.Contains(m.notice, "speech is not available") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestLastReplySkipsStreamingAndUser(t *testing.T) {
	m := newModel(t)
	m.enterChat(user.User{Username: "alice"})
	// The welcome message is the only finished assistant reply.
	if got := m.lastReply(); got != session.WelcomeText {
		t.Errorf("lastReply = %q", got)
	}
}

func TestLoginErrorText(t *testing.T) {
	if got := loginErrorText(user.ErrInvalidCredentials); got != "invalid username or password" {
		t.Errorf("invalid creds text = %q", got)
	}
	if got := loginErrorText(user.ErrUsernameTaken); got != "that username is taken" {
		t.Errorf("taken text = %q", got)
	}
}

func TestToggleTheme(t *testing.T) {
	m := newModel(t)
	m.toggleTheme()
	if m.deps.Config.Theme != config.ThemeLight {
		t.Errorf("theme = %q, want light", m.deps.Config.Theme)
	}
	m.toggleTheme()
	if m.deps.Config.Theme != config.ThemeDark {
		t.Errorf("theme = %q, want dark", m.deps.Config.Theme)
	}
}
