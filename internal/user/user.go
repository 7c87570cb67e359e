// Package user provides the local account store: registration, login,
// suspension, and the admin user-management operations.
//
// Credentials are stored and compared in plaintext in a local file. This is
// deliberate and matches the product's scope; hardening the credential
// store is explicitly out of scope.
//
// The persisted file carries a schema version. A legacy layout mapping
// username -> password string is upgraded to structured records by a pure
// transform the first time the store is opened; the upgrade is idempotent
// and runs before any read.
package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/hara-ai/hara/internal/log"
)

// Sentinel errors, checked with errors.Is().
var (
	// ErrInvalidCredentials indicates an unknown username or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSuspended indicates the account is suspended. The wrapping error
	// carries the suspension reason.
	ErrSuspended = errors.New("account suspended")

	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrReservedUsername indicates the username collides with the master
	// identity.
	ErrReservedUsername = errors.New("this username is reserved")

	// ErrNotFound indicates the user does not exist in the store.
	ErrNotFound = errors.New("user not found")

	// ErrMasterImmutable indicates an attempt to suspend, demote or delete
	// the master identity.
	ErrMasterImmutable = errors.New("master account cannot be modified")

	// ErrEmptyField indicates a blank username or password.
	ErrEmptyField = errors.New("username and password are required")
)

// Master identity: grants admin rights without a store record. Exempt from
// suspension, demotion and deletion.
const (
	MasterUsername = "Dark"
	masterPassword = "darkop"
)

// DefaultSuspendedReason is shown when a suspension carries no reason.
const DefaultSuspendedReason = "Violation of terms."

// storeFile is the persisted account blob.
const storeFile = "users.json"

// schemaVersion tags the persisted document.
const schemaVersion = 1

// User is the public account view handed to callers. The password never
// leaves the package.
type User struct {
	Username        string
	IsAdmin         bool
	IsSuspended     bool
	SuspendedReason string
}

// record is the stored per-account state.
type record struct {
	Password        string    `json:"password"`
	IsAdmin         bool      `json:"isAdmin"`
	IsSuspended     bool      `json:"isSuspended"`
	SuspendedReason string    `json:"suspendedReason,omitempty"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
}

// document is the persisted store layout.
type document struct {
	Version int               `json:"version"`
	Users   map[string]record `json:"users"`
}

// Store owns the account collection. Safe for concurrent use; every
// mutation rewrites the whole file under an advisory flock.
type Store struct {
	mu     sync.RWMutex
	path   string
	lock   *flock.Flock
	logger log.Logger

	users map[string]record
}

// Open loads (or initializes) the user store under dir, running the legacy
// schema upgrade when needed.
func Open(dir string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	path := filepath.Join(dir, storeFile)
	s := &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
		users:  make(map[string]record),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read user store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err == nil && doc.Version >= schemaVersion {
		if doc.Users != nil {
			s.users = doc.Users
		}
		return nil
	}

	upgraded, err := upgradeLegacy(data)
	if err != nil {
		return err
	}
	s.users = upgraded.Users
	if err := s.persist(); err != nil {
		return fmt.Errorf("persist upgraded user store: %w", err)
	}
	s.logger.Info("upgraded user store schema", "version", schemaVersion, "users", len(s.users))
	return nil
}

// upgradeLegacy is the pure transform from either legacy layout (the
// password-string-only mapping or the structured-but-unversioned mapping)
// to the current versioned document.
func upgradeLegacy(data []byte) (document, error) {
	doc := document{Version: schemaVersion, Users: make(map[string]record)}

	// Oldest layout: {"alice": "pw123"}.
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err == nil {
		for username, password := range flat {
			doc.Users[username] = record{Password: password}
		}
		return doc, nil
	}

	// Structured records without the version envelope.
	var structured map[string]record
	if err := json.Unmarshal(data, &structured); err == nil {
		doc.Users = structured
		return doc, nil
	}

	return document{}, errors.New("unrecognized user store layout")
}

// persist rewrites the whole store file. Caller holds s.mu.
func (s *Store) persist() error {
	doc := document{Version: schemaVersion, Users: s.users}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user store: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock user store: %w", err)
	}
	defer func() {
		if unlockErr := s.lock.Unlock(); unlockErr != nil {
			s.logger.Warn("unlock user store", "error", unlockErr)
		}
	}()

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write user store: %w", err)
	}
	return nil
}

// IsMaster reports whether username names the reserved master identity.
// The comparison is case-insensitive so "dark" is reserved too.
func IsMaster(username string) bool {
	return strings.EqualFold(username, MasterUsername)
}

// Login validates credentials and returns the account. The master identity
// is checked first and never touches the store. Suspended accounts fail
// with ErrSuspended carrying the reason.
func (s *Store) Login(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrEmptyField
	}

	if username == MasterUsername && password == masterPassword {
		return User{Username: MasterUsername, IsAdmin: true}, nil
	}

	s.mu.RLock()
	rec, ok := s.users[username]
	s.mu.RUnlock()

	if !ok || rec.Password != password {
		return User{}, ErrInvalidCredentials
	}
	if rec.IsSuspended {
		reason := rec.SuspendedReason
		if reason == "" {
			reason = DefaultSuspendedReason
		}
		return User{}, fmt.Errorf("%w: %s", ErrSuspended, reason)
	}

	return view(username, rec), nil
}

// Register creates a new non-admin account and returns it.
func (s *Store) Register(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrEmptyField
	}
	if IsMaster(username) {
		return User{}, ErrReservedUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return User{}, ErrUsernameTaken
	}

	rec := record{Password: password, CreatedAt: time.Now()}
	s.users[username] = rec
	if err := s.persist(); err != nil {
		return User{}, err
	}
	return view(username, rec), nil
}

// Create adds an account with an explicit admin flag. Admin operation.
func (s *Store) Create(username, password string, isAdmin bool) (User, error) {
	u, err := s.Register(username, password)
	if err != nil {
		return User{}, err
	}
	if !isAdmin {
		return u, nil
	}
	if err := s.SetAdmin(username, true); err != nil {
		return User{}, err
	}
	u.IsAdmin = true
	return u, nil
}

// Get returns one account.
func (s *Store) Get(username string) (User, error) {
	if IsMaster(username) {
		return User{Username: MasterUsername, IsAdmin: true}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[username]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	return view(username, rec), nil
}

// List returns every stored account sorted by username. The master
// identity has no store record and is not listed.
func (s *Store) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for username, rec := range s.users {
		out = append(out, view(username, rec))
	}
	sortUsers(out)
	return out
}

// Count returns the number of stored accounts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Suspend marks an account suspended with a reason.
func (s *Store) Suspend(username, reason string) error {
	return s.mutate(username, func(rec *record) {
		rec.IsSuspended = true
		rec.SuspendedReason = strings.TrimSpace(reason)
	})
}

// Unsuspend clears an account's suspension.
func (s *Store) Unsuspend(username string) error {
	return s.mutate(username, func(rec *record) {
		rec.IsSuspended = false
		rec.SuspendedReason = ""
	})
}

// SetAdmin sets or clears an account's admin flag.
func (s *Store) SetAdmin(username string, isAdmin bool) error {
	return s.mutate(username, func(rec *record) {
		rec.IsAdmin = isAdmin
	})
}

// Delete removes an account.
func (s *Store) Delete(username string) error {
	if IsMaster(username) {
		return ErrMasterImmutable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	delete(s.users, username)
	return s.persist()
}

func (s *Store) mutate(username string, fn func(*record)) error {
	if IsMaster(username) {
		return ErrMasterImmutable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	fn(&rec)
	s.users[username] = rec
	return s.persist()
}

func view(username string, rec record) User {
	return User{
		Username:        username,
		IsAdmin:         rec.IsAdmin,
		IsSuspended:     rec.IsSuspended,
		SuspendedReason: rec.SuspendedReason,
	}
}

func sortUsers(users []User) {
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
}
