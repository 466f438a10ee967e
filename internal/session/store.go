package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Slot names of the persisted session record.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserData     = "userData"
)

// Keys lists every persisted slot.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUserData}

// ErrInvalidKey is returned for slot names that cannot be stored.
var ErrInvalidKey = errors.New("invalid storage key")

// Store is durable client-side storage for the session slots. Each slot is an
// independent string value. Get reports ok=false for an absent slot; errors
// mean the storage itself is unavailable.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\:`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
