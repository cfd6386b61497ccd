// Package credentials persists the Wi-Fi network record.
//
// The record is a small JSON object with "ssid" and "password" keys. A
// missing, unreadable or malformed file is replaced by the empty record so
// the device falls back to provisioning instead of failing the wake cycle.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store errors. Load reports them after recovering.
var (
	ErrMissing = errors.New("credentials: record missing")
	ErrCorrupt = errors.New("credentials: record corrupt")
)

// Credentials is the stored network record.
type Credentials struct {
	NetworkName   string `json:"ssid"`
	NetworkSecret string `json:"password"`
}

// Empty reports whether the record is unprovisioned.
func (c Credentials) Empty() bool {
	return c.NetworkName == ""
}

// Equal reports whether both fields match.
func (c Credentials) Equal(o Credentials) bool {
	return c.NetworkName == o.NetworkName && c.NetworkSecret == o.NetworkSecret
}

// String returns the network name with the secret redacted.
func (c Credentials) String() string {
	if c.Empty() {
		return "<unprovisioned>"
	}
	return fmt.Sprintf("%s/****", c.NetworkName)
}

// Store reads and writes the record at a fixed path.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the record. When the file is missing or corrupt the empty
// record is written back and returned together with ErrMissing or
// ErrCorrupt; the returned Credentials are always usable.
func (s *Store) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		cause := ErrCorrupt
		if os.IsNotExist(err) {
			cause = ErrMissing
		}
		return Credentials{}, s.recover(cause, err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, s.recover(ErrCorrupt, err)
	}
	return c, nil
}

func (s *Store) recover(cause, err error) error {
	if werr := s.write(Credentials{}); werr != nil {
		return fmt.Errorf("%w: %v (reset failed: %v)", cause, err, werr)
	}
	return fmt.Errorf("%w: %v", cause, err)
}

// Save writes the record.
func (s *Store) Save(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(c)
}

// Erase writes the empty record.
func (s *Store) Erase() error {
	return s.Save(Credentials{})
}

func (s *Store) write(c Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
