package manager

import (
	"time"

	"vramd/pkg/types"
)

// State is the lifecycle state of a loaded-model entry. A key with no entry
// is unloaded.
type State string

const (
	StateUnloaded  State = "unloaded"
	StateLoading   State = "loading"
	StateLoaded    State = "loaded"
	StateUnloading State = "unloading"
	StateError     State = "error"
)

// holdsVRAM reports whether an entry in state s counts against the budget.
func (s State) holdsVRAM() bool {
	return s == StateLoading || s == StateLoaded || s == StateUnloading
}

// LoadedModel is one entry of the loaded-model table.
type LoadedModel struct {
	Key            types.ModelKey
	VRAMMB         int
	State          State
	LoadedAt       time.Time
	LastUsed       time.Time
	IdleTimeout    time.Duration
	SupportsUnload bool
	ErrorMessage   string
	// Sessions referencing this model.
	Sessions map[string]struct{}
}

// IsIdle reports whether the model has not been used for longer than its
// idle timeout.
func (lm *LoadedModel) IsIdle(now time.Time) bool {
	return now.Sub(lm.LastUsed) > lm.IdleTimeout
}

// Protected reports whether any session references the model.
func (lm *LoadedModel) Protected() bool { return len(lm.Sessions) > 0 }

func (lm *LoadedModel) clone() LoadedModel {
	c := *lm
	c.Sessions = make(map[string]struct{}, len(lm.Sessions))
	for s := range lm.Sessions {
		c.Sessions[s] = struct{}{}
	}
	return c
}

// TaskKind identifies a coordinator operation.
type TaskKind string

const (
	TaskLoad     TaskKind = "load"
	TaskUnload   TaskKind = "unload"
	TaskOptimize TaskKind = "optimize"
	TaskResync   TaskKind = "resync"
)

// OutcomeStatus is the state of a submitted request.
type OutcomeStatus string

const (
	StatusPending    OutcomeStatus = "pending"
	StatusProcessing OutcomeStatus = "processing"
	StatusSucceeded  OutcomeStatus = "succeeded"
	StatusFailed     OutcomeStatus = "failed"
	StatusCancelled  OutcomeStatus = "cancelled"
)

// Terminal reports whether s is a final status.
func (s OutcomeStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Outcome is the result of a coordinator operation.
type Outcome struct {
	RequestID     string
	Kind          TaskKind
	Key           types.ModelKey
	Status        OutcomeStatus
	AlreadyLoaded bool
	Err           error
	// Models evicted to make room for a load.
	Evicted []types.ModelKey
	// Optimize results.
	Unloaded    []types.ModelKey
	Failed      []types.ModelKey
	SubmittedAt time.Time
	CompletedAt time.Time
}

// Success reports whether the operation completed without error.
func (o Outcome) Success() bool { return o.Status == StatusSucceeded }

// LoadParams describes a load request. A nil Priority uses the registry default.
type LoadParams struct {
	Key       types.ModelKey
	Priority  *int
	SessionID string
}

// LoadTicket is returned by RequestLoad.
type LoadTicket struct {
	RequestID     string
	Key           types.ModelKey
	AlreadyLoaded bool
}

// OptimizeResult lists models unloaded by an optimize pass and the ones whose
// unload failed.
type OptimizeResult struct {
	Unloaded []types.ModelKey
	Errors   []types.ModelKey
}

// UnloadReason is attached to model.unloaded events.
type UnloadReason string

const (
	ReasonAPI     UnloadReason = "api"
	ReasonEvicted UnloadReason = "evicted"
	ReasonIdle    UnloadReason = "idle"
	ReasonForced  UnloadReason = "forced"
)
