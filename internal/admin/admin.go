// Package admin exposes the operations behind the admin panel: user
// management, usage stats, and the global API key override. Every
// operation checks that the caller is an admin; the UI hides the panel
// from regular users, but the check here is the one that counts.
package admin

import (
	"errors"
	"fmt"

	"github.com/hara-ai/hara/internal/config"
	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/provider"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/user"
)

// ErrNotAdmin means the acting user has no admin rights.
var ErrNotAdmin = errors.New("admin: not an administrator")

// Stats is a point-in-time usage snapshot.
type Stats struct {
	Users     int
	Sessions  int
	Messages  int
	StoreSize int64
}

// Service wires the stores together for administrative actions.
type Service struct {
	users     *user.Store
	sessions  *session.Store
	config    *config.Config
	providers *provider.Context
	logger    log.Logger
}

func NewService(users *user.Store, sessions *session.Store, cfg *config.Config, providers *provider.Context, logger log.Logger) *Service {
	return &Service{users: users, sessions: sessions, config: cfg, providers: providers, logger: logger}
}

func (s *Service) authorize(actor user.User) error {
	if !actor.IsAdmin {
		return ErrNotAdmin
	}
	return nil
}

// Stats reports usage across all users.
func (s *Service) Stats(actor user.User) (Stats, error) {
	if err := s.authorize(actor); err != nil {
		return Stats{}, err
	}
	sessions, messages := s.sessions.Counts()
	return Stats{
		Users:     s.users.Count(),
		Sessions:  sessions,
		Messages:  messages,
		StoreSize: s.sessions.Size(),
	}, nil
}

// Users lists all accounts.
func (s *Service) Users(actor user.User) ([]user.User, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	return s.users.List(), nil
}

// CreateUser registers an account on a user's behalf.
func (s *Service) CreateUser(actor user.User, username, password string, isAdmin bool) (user.User, error) {
	if err := s.authorize(actor); err != nil {
		return user.User{}, err
	}
	created, err := s.users.Create(username, password, isAdmin)
	if err != nil {
		return user.User{}, err
	}
	s.logger.Info("user created by admin", "admin", actor.Username, "user", username, "is_admin", isAdmin)
	return created, nil
}

// Suspend blocks an account. An empty reason gets the default.
func (s *Service) Suspend(actor user.User, username, reason string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.users.Suspend(username, reason); err != nil {
		return err
	}
	s.logger.Info("user suspended", "admin", actor.Username, "user", username)
	return nil
}

// Unsuspend restores a blocked account.
func (s *Service) Unsuspend(actor user.User, username string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	return s.users.Unsuspend(username)
}

// SetAdmin grants or revokes admin rights.
func (s *Service) SetAdmin(actor user.User, username string, isAdmin bool) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.users.SetAdmin(username, isAdmin); err != nil {
		return err
	}
	s.logger.Info("admin rights changed", "admin", actor.Username, "user", username, "is_admin", isAdmin)
	return nil
}

// DeleteUser removes an account and every session it owns.
func (s *Service) DeleteUser(actor user.User, username string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.users.Delete(username); err != nil {
		return err
	}
	if err := s.sessions.DeleteUser(username); err != nil {
		return fmt.Errorf("delete sessions of removed user: %w", err)
	}
	s.logger.Info("user deleted", "admin", actor.Username, "user", username)
	return nil
}

// ClearAllSessions wipes every conversation for every user.
func (s *Service) ClearAllSessions(actor user.User) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.sessions.Clear(); err != nil {
		return err
	}
	s.logger.Warn("all sessions cleared", "admin", actor.Username)
	return nil
}

// SetGlobalKey installs an API key override for everyone. The provider
// context is reset so the next send picks up the new backend. An empty
// key removes the override and falls back to the configured key.
func (s *Service) SetGlobalKey(actor user.User, key string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := s.config.SetOverrideKey(key); err != nil {
		return err
	}
	s.providers.Reset()
	if key == "" {
		s.logger.Info("global key override cleared", "admin", actor.Username)
	} else {
		s.logger.Info("global key override set", "admin", actor.Username)
	}
	return nil
}

// GlobalKey reports the current override, empty when none is set.
func (s *Service) GlobalKey(actor user.User) (string, error) {
	if err := s.authorize(actor); err != nil {
		return "", err
	}
	return s.config.OverrideKey()
}
