package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/hara-ai/hara/internal/log"
)

// Sentinel errors for store operations, checked with errors.Is().
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")
)

// storeFile is the flat persisted blob holding every user's sessions.
const storeFile = "sessions.json"

// schemaVersion tags the persisted document. Loads of an older version go
// through a pure upgrade transform before any read.
const schemaVersion = 1

// document is the persisted store layout.
type document struct {
	Version  int                      `json:"version"`
	Sessions map[string][]ChatSession `json:"sessions"`
}

// Store owns the authoritative per-user collection of conversations.
//
// Store is safe for concurrent use by multiple goroutines. Every mutating
// operation rewrites the whole persisted file under an advisory flock;
// concurrent processes are last-writer-wins.
type Store struct {
	mu     sync.RWMutex
	path   string
	lock   *flock.Flock
	logger log.Logger

	sessions map[string][]ChatSession
}

// Open loads (or initializes) the session store under dir.
func Open(dir string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	path := filepath.Join(dir, storeFile)
	s := &Store{
		path:     path,
		lock:     flock.New(path + ".lock"),
		logger:   logger,
		sessions: make(map[string][]ChatSession),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the persisted document. A missing file initializes an empty
// store. Pure read: nothing is written back unless an upgrade ran.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse session store: %w", err)
	}

	if doc.Version == 0 {
		// Pre-versioned layout: the bare username -> sessions mapping.
		var legacy map[string][]ChatSession
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("parse legacy session store: %w", err)
		}
		doc = upgradeLegacy(legacy)
		s.sessions = doc.Sessions
		if err := s.persist(); err != nil {
			return fmt.Errorf("persist upgraded session store: %w", err)
		}
		s.logger.Info("upgraded session store schema", "version", schemaVersion)
		return nil
	}

	if doc.Sessions != nil {
		s.sessions = doc.Sessions
	}
	return nil
}

// upgradeLegacy is the pure transform from the pre-versioned layout to the
// current document shape.
func upgradeLegacy(legacy map[string][]ChatSession) document {
	if legacy == nil {
		legacy = make(map[string][]ChatSession)
	}
	return document{Version: schemaVersion, Sessions: legacy}
}

// persist rewrites the whole store file. Caller holds s.mu.
func (s *Store) persist() error {
	doc := document{Version: schemaVersion, Sessions: s.sessions}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session store: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock session store: %w", err)
	}
	defer func() {
		if unlockErr := s.lock.Unlock(); unlockErr != nil {
			s.logger.Warn("unlock session store", "error", unlockErr)
		}
	}()

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session store: %w", err)
	}
	return nil
}

// Create makes a new seeded session for username, persists it, and returns
// a copy.
func (s *Store) Create(username string) (ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := NewChatSession(username)
	s.sessions[username] = append(s.sessions[username], sess)
	if err := s.persist(); err != nil {
		return ChatSession{}, err
	}
	return sess.Clone(), nil
}

// Get returns a copy of one session.
func (s *Store) Get(username string, id uuid.UUID) (ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions[username] {
		if sess.ID == id {
			return sess.Clone(), nil
		}
	}
	return ChatSession{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns copies of username's sessions ordered by UpdatedAt
// descending, the only source of truth for "recent session" ordering.
func (s *Store) List(username string) []ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ChatSession, 0, len(s.sessions[username]))
	for _, sess := range s.sessions[username] {
		out = append(out, sess.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Update replaces the stored session with the same ID and persists.
func (s *Store) Update(username string, sess ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.sessions[username]
	for i := range list {
		if list[i].ID == sess.ID {
			list[i] = sess.Clone()
			return s.persist()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, sess.ID)
}

// Replace swaps a user's whole session list and persists. Used by bulk
// operations that rebuild the list rather than editing one session.
func (s *Store) Replace(username string, sessions []ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]ChatSession, len(sessions))
	for i := range sessions {
		list[i] = sessions[i].Clone()
	}
	s.sessions[username] = list
	return s.persist()
}

// Touch bumps a session's UpdatedAt and persists. Used when selecting a
// session so recency ordering follows actual use.
func (s *Store) Touch(username string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.sessions[username]
	for i := range list {
		if list[i].ID == id {
			list[i].UpdatedAt = time.Now()
			return s.persist()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes one session and persists.
func (s *Store) Delete(username string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.sessions[username]
	for i := range list {
		if list[i].ID == id {
			s.sessions[username] = append(list[:i:i], list[i+1:]...)
			return s.persist()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// DeleteUser removes every session owned by username. Deleting a user with
// no sessions is a no-op, not an error.
func (s *Store) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[username]; !ok {
		return nil
	}
	delete(s.sessions, username)
	return s.persist()
}

// Clear drops every session for every user. Admin maintenance operation.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string][]ChatSession)
	return s.persist()
}

// Counts returns the total session and message counts across all users.
func (s *Store) Counts() (sessions, messages int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, list := range s.sessions {
		sessions += len(list)
		for _, sess := range list {
			messages += len(sess.Messages)
		}
	}
	return sessions, messages
}

// Size reports the persisted file size in bytes. Returns 0 when the store
// has never been written.
func (s *Store) Size() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
