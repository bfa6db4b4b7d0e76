package main

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
)

// Store is an in-memory credential store.
type Store struct {
	mu    sync.RWMutex
	users map[string]string
}

// NewStore creates a store seeded with username:password pairs.
func NewStore(pairs []string) (*Store, error) {
	s := &Store{users: make(map[string]string)}
	for _, p := range pairs {
		user, pass, ok := strings.Cut(p, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("invalid user entry %q, want username:password", p)
		}
		s.Add(user, pass)
	}
	return s, nil
}

// Add registers or replaces a user.
func (s *Store) Add(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// Authenticate reports whether the credentials match a known user.
func (s *Store) Authenticate(username, password string) bool {
	s.mu.RLock()
	want, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(password)) == 1
}
