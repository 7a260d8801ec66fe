// Package keystore holds custody of session encryption keys. The file
// operations layer returns generated keys and never persists them; something
// has to remember them between `session create` and `decrypt`, and that is
// this package. Keys live in the operating system keyring, never on disk
// next to the files they protect.
package keystore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// ServiceName is the identifier used for all devsess keys in the system keyring.
const ServiceName = "devsess"

// ErrNotFound is returned when no key is stored under the requested name.
var ErrNotFound = errors.New("key not found")

// Store is the interface for key custody. Keys are base64 strings as
// returned by the file operations layer.
type Store interface {
	// Put stores a key under a name, replacing any previous value.
	Put(name, key string) error
	// Get retrieves a key by name. Missing keys return ErrNotFound.
	Get(name string) (string, error)
	// Delete removes a key. Deleting a missing key returns ErrNotFound.
	Delete(name string) error
}

// KeyringStore implements Store using the system keyring.
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (GNOME Keyring, KWallet)
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed store under the devsess service.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: ServiceName}
}

func (s *KeyringStore) Put(name, key string) error {
	if name == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	if err := keyring.Set(s.service, name, key); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}
	return nil
}

func (s *KeyringStore) Get(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("key name cannot be empty")
	}
	value, err := keyring.Get(s.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve key: %w", err)
	}
	return value, nil
}

func (s *KeyringStore) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	if err := keyring.Delete(s.service, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and for environments without
// a system keyring.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]string)}
}

func (s *MemoryStore) Put(name, key string) error {
	if name == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[name] = key
	return nil
}

func (s *MemoryStore) Get(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("key name cannot be empty")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[name]
	if !ok {
		return "", ErrNotFound
	}
	return key, nil
}

func (s *MemoryStore) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[name]; !ok {
		return ErrNotFound
	}
	delete(s.keys, name)
	return nil
}

// SessionKeyName builds the keyring entry name for one encrypted file within
// a session: one session can hold several encrypted files, each with its own
// key.
func SessionKeyName(sessionID, relPath string) string {
	return fmt.Sprintf("%s/%s", sessionID, relPath)
}
