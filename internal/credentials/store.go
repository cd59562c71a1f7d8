package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/setoncarmichael/claude-usage-widget/internal/config"
)

// Credential is a remote session paired with the organization it belongs to.
type Credential struct {
	SessionKey     string `json:"session_key"`
	OrganizationID string `json:"organization_id"`
}

// Valid reports whether both fields are present. A partial credential is
// never usable: the session key authenticates and the organization ID scopes
// every usage request.
func (c Credential) Valid() bool {
	return c.SessionKey != "" && c.OrganizationID != ""
}

var ErrPartialCredential = errors.New("credentials: partial credential rejected")

// Store persists a single credential as a 0600 JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore() *Store {
	return NewStoreAt(filepath.Join(config.ConfigDir(), "credentials.json"))
}

func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Get returns the stored credential. Anything short of a complete credential
// (missing file, corrupt file, or only one field set) reads as absent.
func (s *Store) Get() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Credential{}, false
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return Credential{}, false
	}
	if !c.Valid() {
		return Credential{}, false
	}
	return c, true
}

func (s *Store) Set(c Credential) error {
	if !c.Valid() {
		return ErrPartialCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}
	return nil
}

// Clear removes the stored credential. Clearing an already-empty store is
// not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credential: %w", err)
	}
	return nil
}
