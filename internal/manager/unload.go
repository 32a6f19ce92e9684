package manager

import (
	"context"
	"errors"
	"sort"

	"vramd/pkg/types"
)

// errNoLongerIdle skips a candidate that was used after it was selected.
var errNoLongerIdle = errors.New("model used since selection")

type unloadOpts struct {
	reason    UnloadReason
	requestID string
	// force unloads even when sessions reference the model and drops those
	// references.
	force       bool
	requireIdle bool
}

// UnloadModel unloads key through the coordinator and waits for the result.
// A nil error means the model was unloaded. Sticky providers are refused
// immediately without touching state.
func (m *Manager) UnloadModel(ctx context.Context, key types.ModelKey, force bool) error {
	ad, ok := m.adapters.Get(key.Provider)
	if !ok {
		return ErrModelNotFound(key.String())
	}
	if !ad.SupportsUnload() {
		return unloadUnsupportedError{key: key}
	}
	if !m.Running() {
		return ErrNotRunning
	}
	m.mu.RLock()
	lm, ok := m.loaded.Get(key)
	loaded := ok && lm.State != StateError
	m.mu.RUnlock()
	if !loaded {
		return notLoadedError{key: key}
	}

	t := newTask(newRequestID(), TaskUnload, key, operatorPriority, m.now())
	t.force = force
	t.reason = ReasonAPI
	if force {
		t.reason = ReasonForced
	}
	if err := m.queue.push(t); err != nil {
		return err
	}
	select {
	case <-t.done:
		return t.outcome.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) processUnload(ctx context.Context, t *task) Outcome {
	m.mu.RLock()
	lm, ok := m.loaded.Get(t.key)
	var err error
	switch {
	case !ok || lm.State != StateLoaded:
		err = notLoadedError{key: t.key}
	case !lm.SupportsUnload:
		err = unloadUnsupportedError{key: t.key}
	case lm.Protected() && !t.force:
		err = sessionProtectedError{key: t.key, sessions: sortedSessions(lm.Sessions)}
	}
	m.mu.RUnlock()
	if err == nil {
		err = m.unloadEntry(ctx, t.key, unloadOpts{reason: t.reason, requestID: t.id, force: t.force})
	}
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}
	return Outcome{Status: StatusSucceeded, Unloaded: []types.ModelKey{t.key}}
}

// unloadEntry is the single unload path used by the API, eviction and the
// idle sweep. It rechecks eligibility under the lock because sessions and
// touches can land between candidate selection and the call.
func (m *Manager) unloadEntry(ctx context.Context, key types.ModelKey, opts unloadOpts) error {
	ad, ok := m.adapters.Get(key.Provider)
	if !ok {
		return ErrModelNotFound(key.String())
	}

	m.mu.Lock()
	lm, ok := m.loaded.Get(key)
	if !ok || lm.State != StateLoaded {
		m.mu.Unlock()
		return notLoadedError{key: key}
	}
	if !lm.SupportsUnload {
		m.mu.Unlock()
		return unloadUnsupportedError{key: key}
	}
	if lm.Protected() && !opts.force {
		err := sessionProtectedError{key: key, sessions: sortedSessions(lm.Sessions)}
		m.mu.Unlock()
		return err
	}
	if opts.requireIdle && !lm.IsIdle(m.now()) {
		m.mu.Unlock()
		return errNoLongerIdle
	}
	lm.State = StateUnloading
	vram := lm.VRAMMB
	m.mu.Unlock()

	m.log.Info().Str("event", "unload_start").Str("model", key.String()).Str("reason", string(opts.reason)).Msg("unloading model")
	cctx, cancel := m.opContext(ctx)
	err := ad.Unload(cctx, key.ModelID)
	cancel()

	m.mu.Lock()
	if err != nil {
		lm.State = StateLoaded
		lm.ErrorMessage = err.Error()
		m.mu.Unlock()
		m.log.Error().Err(err).Str("event", "unload_failed").Str("model", key.String()).Msg("provider unload failed, model stays loaded")
		m.publish(Event{Name: EventModelUnloadFailed, Key: key, RequestID: opts.requestID, VRAMMB: vram, Reason: opts.reason, Err: err.Error()})
		return ProviderUnloadError{Key: key, Err: err}
	}
	released := m.detachAllLocked(key)
	m.loaded.Delete(key)
	m.creditReclaimedLocked(vram)
	m.mu.Unlock()

	ev := m.log.Info().Str("event", "unload_done").Str("model", key.String()).Str("reason", string(opts.reason))
	if len(released) > 0 {
		ev = ev.Strs("sessions_released", released)
	}
	ev.Msg("model unloaded")
	m.publish(Event{Name: EventModelUnloaded, Key: key, RequestID: opts.requestID, VRAMMB: vram, Reason: opts.reason,
		Fields: map[string]any{"sessions_released": len(released)}})
	return nil
}

func sortedSessions(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
