package admin

import (
	"errors"
	"testing"

	"github.com/hara-ai/hara/internal/config"
	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/provider"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/user"
)

func newService(t *testing.T) (*Service, *user.Store, *session.Store, *config.Config) {
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
	cfg := &config.Config{DataDir: dir, APIKey: "AIzaSyConfigured"}
	providers := provider.NewContext(func() provider.Config {
		return provider.Config{APIKey: cfg.ResolveAPIKey()}
	})
	return NewService(users, sessions, cfg, providers, logger), users, sessions, cfg
}

var (
	adminActor  = user.User{Username: "Dark", IsAdmin: true}
	normalActor = user.User{Username: "bob"}
)

func TestNonAdminRejectedEverywhere(t *testing.T) {
	svc, _, _, _ := newService(t)

	if _, err := svc.Stats(normalActor); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("Stats error = %v", err)
	}
	if _, err := svc.Users(normalActor); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("Users error = %v", err)
	}
	if err := svc.Suspend(normalActor, "alice", ""); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("Suspend error = %v", err)
	}
	if err := svc.ClearAllSessions(normalActor); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("ClearAllSessions error = %v", err)
	}
	if err := svc.SetGlobalKey(normalActor, "sk-or-x"); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("SetGlobalKey error = %v", err)
	}
}

func TestStatsCountsAcrossUsers(t *testing.T) {
	svc, users, sessions, _ := newService(t)

	if _, err := users.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := users.Register("bob", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.Create("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.Create("bob"); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.Stats(adminActor)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Users != 2 {
		t.Errorf("Users = %d, want 2", stats.Users)
	}
	if stats.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", stats.Sessions)
	}
	// Each new session seeds a welcome message.
	if stats.Messages != 2 {
		t.Errorf("Messages = %d, want 2", stats.Messages)
	}
	if stats.StoreSize <= 0 {
		t.Errorf("StoreSize = %d, want > 0", stats.StoreSize)
	}
}

func TestDeleteUserRemovesSessions(t *testing.T) {
	svc, users, sessions, _ := newService(t)

	if _, err := users.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.Create("alice"); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteUser(adminActor, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := users.Get("alice"); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("user still present: %v", err)
	}
	if got := sessions.List("alice"); len(got) != 0 {
		t.Errorf("sessions still present: %d", len(got))
	}
}

func TestClearAllSessions(t *testing.T) {
	svc, _, sessions, _ := newService(t)
	if _, err := sessions.Create("alice"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ClearAllSessions(adminActor); err != nil {
		t.Fatal(err)
	}
	count, _ := sessions.Counts()
	if count != 0 {
		t.Errorf("sessions after clear = %d", count)
	}
}

func TestSuspendAndUnsuspend(t *testing.T) {
	svc, users, _, _ := newService(t)
	if _, err := users.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Suspend(adminActor, "alice", "spamming"); err != nil {
		t.Fatal(err)
	}
	if _, err := users.Login("alice", "pw"); !errors.Is(err, user.ErrSuspended) {
		t.Errorf("login of suspended user: %v", err)
	}
	if err := svc.Unsuspend(adminActor, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := users.Login("alice", "pw"); err != nil {
		t.Errorf("login after unsuspend: %v", err)
	}
}

func TestGlobalKeyOverrideSwitchesBackend(t *testing.T) {
	svc, _, _, cfg := newService(t)
	providers := svc.providers

	p, err := providers.Provider()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "gemini" {
		t.Fatalf("initial backend = %q", p.Name())
	}

	if err := svc.SetGlobalKey(adminActor, "sk-or-v1-override"); err != nil {
		t.Fatal(err)
	}
	p, err = providers.Provider()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "openrouter" {
		t.Errorf("backend after override = %q", p.Name())
	}

	if err := svc.SetGlobalKey(adminActor, ""); err != nil {
		t.Fatal(err)
	}
	if got, _ := svc.GlobalKey(adminActor); got != "" {
		t.Errorf("override after clear = %q", got)
	}
	if got := cfg.ResolveAPIKey(); got != "AIzaSyConfigured" {
		t.Errorf("resolved key after clear = %q", got)
	}
}
