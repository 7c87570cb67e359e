package user

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// stateFile records the active identity between runs: which username is
// logged in and whether the session carries admin rights.
const stateFile = "identity.json"

// Identity is the persisted active-login state.
type Identity struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
}

// LoadIdentity reads the active identity from dir.
// Returns (nil, nil) when nobody is logged in; that is not an error.
func LoadIdentity(dir string) (*Identity, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read identity state: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse identity state: %w", err)
	}
	if id.Username == "" {
		return nil, nil
	}
	return &id, nil
}

// SaveIdentity persists the active identity to dir.
func SaveIdentity(dir string, id Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, stateFile), data, 0o600); err != nil {
		return fmt.Errorf("write identity state: %w", err)
	}
	return nil
}

// ClearIdentity removes the active identity (logout). Clearing an absent
// identity is a no-op.
func ClearIdentity(dir string) error {
	err := os.Remove(filepath.Join(dir, stateFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear identity state: %w", err)
	}
	return nil
}
