package registry

import (
	"sync"

	"vramd/pkg/types"
)

// Store holds the current load Result for one registry file and notifies
// subscribers when it changes.
type Store struct {
	path string

	mu   sync.RWMutex
	cur  Result
	subs []func(Result)
}

// NewStore loads path immediately.
func NewStore(path string) *Store {
	return &Store{path: path, cur: Load(path)}
}

func (s *Store) Path() string { return s.path }

// Current returns the latest result.
func (s *Store) Current() Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Subscribe registers fn for every later Set or Reload.
func (s *Store) Subscribe(fn func(Result)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Set replaces the current result and notifies subscribers.
func (s *Store) Set(res Result) {
	s.mu.Lock()
	s.cur = res
	subs := append([]func(Result){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(res)
	}
}

// Reload re-reads the file.
func (s *Store) Reload() Result {
	res := Load(s.path)
	s.Set(res)
	return res
}

// Response renders the current result for the HTTP API.
func (s *Store) Response() types.RegistryResponse {
	return ResponseFor(s.Current())
}

func ResponseFor(res Result) types.RegistryResponse {
	return types.RegistryResponse{
		Path:       res.Path,
		Degraded:   res.Degraded,
		Reason:     res.Reason,
		Warnings:   res.Warnings,
		Thresholds: res.Registry.Thresholds(),
		Models:     res.Registry.Definitions(),
	}
}
