package manager

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vramd/pkg/types"
)

// CapacityError means the model does not fit even after evicting every
// eligible candidate. Evictions performed while trying stay committed.
type CapacityError struct {
	Key     types.ModelKey
	NeedMB  int
	FreeMB  int
	Evicted []types.ModelKey
}

func (e CapacityError) Error() string {
	msg := fmt.Sprintf("insufficient VRAM for %s: need %d MB, %d MB free", e.Key, e.NeedMB, e.FreeMB)
	if len(e.Evicted) > 0 {
		msg += fmt.Sprintf(" after evicting %s", joinKeys(e.Evicted))
	}
	return msg
}

func (e CapacityError) StatusCode() int { return http.StatusConflict }

// IsCapacity reports whether err is a CapacityError.
func IsCapacity(err error) bool {
	var e CapacityError
	return errors.As(err, &e)
}

// ProviderLoadError wraps an adapter load failure.
type ProviderLoadError struct {
	Key types.ModelKey
	Err error
}

func (e ProviderLoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Key, e.Err) }
func (e ProviderLoadError) Unwrap() error { return e.Err }
func (e ProviderLoadError) StatusCode() int {
	return http.StatusBadGateway
}

// IsProviderLoad reports whether err is a ProviderLoadError.
func IsProviderLoad(err error) bool {
	var e ProviderLoadError
	return errors.As(err, &e)
}

// ProviderUnloadError wraps an adapter unload failure. The model stays loaded.
type ProviderUnloadError struct {
	Key types.ModelKey
	Err error
}

func (e ProviderUnloadError) Error() string   { return fmt.Sprintf("unload %s: %v", e.Key, e.Err) }
func (e ProviderUnloadError) Unwrap() error   { return e.Err }
func (e ProviderUnloadError) StatusCode() int { return http.StatusBadGateway }

// IsProviderUnload reports whether err is a ProviderUnloadError.
func IsProviderUnload(err error) bool {
	var e ProviderUnloadError
	return errors.As(err, &e)
}

// sessionProtectedError rejects a non-forced unload of a referenced model.
type sessionProtectedError struct {
	key      types.ModelKey
	sessions []string
}

func (e sessionProtectedError) Error() string {
	return fmt.Sprintf("%s is in use by sessions %s", e.key, strings.Join(e.sessions, ","))
}

func (e sessionProtectedError) StatusCode() int { return http.StatusConflict }

// IsSessionProtected reports whether an unload was refused because sessions
// reference the model.
func IsSessionProtected(err error) bool {
	var e sessionProtectedError
	return errors.As(err, &e)
}

// unloadUnsupportedError is returned for sticky providers.
type unloadUnsupportedError struct{ key types.ModelKey }

func (e unloadUnsupportedError) Error() string {
	return fmt.Sprintf("provider %s cannot unload %s without a restart", e.key.Provider, e.key.ModelID)
}

func (e unloadUnsupportedError) StatusCode() int { return http.StatusUnprocessableEntity }

// IsUnloadUnsupported reports whether err came from a sticky provider.
func IsUnloadUnsupported(err error) bool {
	var e unloadUnsupportedError
	return errors.As(err, &e)
}

type notLoadedError struct{ key types.ModelKey }

func (e notLoadedError) Error() string   { return e.key.String() + " is not loaded" }
func (e notLoadedError) StatusCode() int { return http.StatusNotFound }

// IsNotLoaded reports whether err indicates the model is not resident.
func IsNotLoaded(err error) bool {
	var e notLoadedError
	return errors.As(err, &e)
}

// modelNotFoundError is returned for providers with no adapter.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string   { return "model not found: " + e.id }
func (e modelNotFoundError) StatusCode() int { return http.StatusNotFound }

// ErrModelNotFound returns an error for an unresolvable model key.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates an unknown model or provider.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// tooBusyError signals a full admission queue for 429 mapping.
type tooBusyError struct{ depth int }

func (e tooBusyError) Error() string {
	return fmt.Sprintf("too busy: admission queue full (%d pending)", e.depth)
}

func (e tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

type requestNotFoundError struct{ id string }

func (e requestNotFoundError) Error() string   { return "request not found: " + e.id }
func (e requestNotFoundError) StatusCode() int { return http.StatusNotFound }

// IsRequestNotFound reports whether a request id is unknown or has expired
// from the outcome history.
func IsRequestNotFound(err error) bool {
	var e requestNotFoundError
	return errors.As(err, &e)
}

type requestInProgressError struct {
	id        string
	completed bool
}

func (e requestInProgressError) Error() string {
	if e.completed {
		return "request " + e.id + " already completed"
	}
	return "request " + e.id + " is already being processed"
}
func (e requestInProgressError) StatusCode() int { return http.StatusConflict }

// IsRequestInProgress reports whether a cancel arrived after the coordinator
// started the operation.
func IsRequestInProgress(err error) bool {
	var e requestInProgressError
	return errors.As(err, &e)
}

// ErrRequestCancelled is the outcome error of a withdrawn request.
var ErrRequestCancelled = errors.New("request cancelled")

// ErrNotRunning is returned when work is submitted before Start or after Close.
var ErrNotRunning = errors.New("manager not running")

type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string   { return e.msg }
func (e invalidRequestError) StatusCode() int { return http.StatusBadRequest }

// IsInvalidRequest reports whether err was caused by bad caller input.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

// ErrorKind names the taxonomy member of err for wire responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsCapacity(err):
		return "capacity"
	case IsProviderLoad(err):
		return "provider_load"
	case IsProviderUnload(err):
		return "provider_unload"
	case IsSessionProtected(err):
		return "session_protected"
	case IsUnloadUnsupported(err):
		return "unload_unsupported"
	case IsNotLoaded(err):
		return "not_loaded"
	case errors.Is(err, ErrRequestCancelled):
		return "cancelled"
	case IsModelNotFound(err):
		return "not_found"
	default:
		return "internal"
	}
}

func joinKeys(keys []types.ModelKey) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = k.String()
	}
	return strings.Join(s, ", ")
}
