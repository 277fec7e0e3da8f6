// Package store keeps named patterns in memory
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/james-see/patternplay/pkg/pattern"
)

// ErrNotFound is returned by callers that require a pattern to exist
var ErrNotFound = errors.New("pattern not found")

// Store is a concurrency-safe map of patterns keyed by name. Values are
// copied in and out so stored patterns are never shared.
type Store struct {
	mu       sync.RWMutex
	patterns map[string]pattern.Pattern
}

// New creates an empty store
func New() *Store {
	return &Store{patterns: make(map[string]pattern.Pattern)}
}

// Get returns a copy of the named pattern
func (s *Store) Get(name string) (pattern.Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[name]
	if !ok {
		return pattern.Pattern{}, false
	}
	return p.Clone(), true
}

// Put stores p under p.Name, replacing any previous pattern of that name
func (s *Store) Put(p pattern.Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[p.Name] = p.Clone()
}

// Delete removes the named pattern and reports whether it existed
func (s *Store) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.patterns[name]
	delete(s.patterns, name)
	return ok
}

// List returns the pattern names in sorted order
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.patterns))
	for name := range s.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored patterns
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// Clear removes every pattern
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = make(map[string]pattern.Pattern)
}
