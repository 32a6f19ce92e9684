// Package provider integrates inference backends that own model weights.
// The manager never loads weights itself; it asks an Adapter to.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnloadUnsupported is returned by sticky providers, whose memory is only
// released by restarting the backend process.
var ErrUnloadUnsupported = errors.New("provider does not support unload")

// Adapter is one backend. Keep this surface small.
type Adapter interface {
	Name() string
	// SupportsUnload is a static property of the provider.
	SupportsUnload() bool
	Load(ctx context.Context, modelID string) error
	Unload(ctx context.Context, modelID string) error
}

// Loaded is a model a backend reports as resident.
type Loaded struct {
	ModelID string
	// Zero when the backend does not report memory.
	VRAMMB int
}

// Lister is implemented by backends that can enumerate resident models.
// The manager uses it to rediscover state after a restart.
type Lister interface {
	ListLoaded(ctx context.Context) ([]Loaded, error)
}

// Canonicalizer is implemented by backends that accept aliases. CanonicalID
// returns the id the backend reports for the model in ListLoaded, so that
// an alias and the real id are tracked as one entry.
type Canonicalizer interface {
	CanonicalID(ctx context.Context, modelID string) (string, error)
}

// Pinger is implemented by backends with a cheap reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusError is a non-2xx response from a backend.
type StatusError struct {
	Provider string
	Op       string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Provider, e.Op, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.Code, e.Body)
}
