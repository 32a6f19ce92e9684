package manager

import (
	"context"
	"fmt"

	"vramd/internal/provider"
	"vramd/internal/registry"
	"vramd/pkg/types"
)

// RequestLoad admits a load request. A model that is already loaded is
// touched and gains the session immediately; otherwise the request is queued
// and its id returned without waiting.
func (m *Manager) RequestLoad(p LoadParams) (LoadTicket, error) {
	if p.Key.Provider == "" || p.Key.ModelID == "" {
		return LoadTicket{}, invalidRequestError{msg: "provider and model_id are required"}
	}
	if _, ok := m.adapters.Get(p.Key.Provider); !ok {
		return LoadTicket{}, ErrModelNotFound(fmt.Sprintf("%s (unknown provider %q)", p.Key, p.Key.Provider))
	}
	if p.Priority != nil && (*p.Priority < registry.MinPriority || *p.Priority > registry.MaxPriority) {
		return LoadTicket{}, invalidRequestError{msg: fmt.Sprintf("priority %d out of range %d..%d", *p.Priority, registry.MinPriority, registry.MaxPriority)}
	}
	if !m.Running() {
		return LoadTicket{}, ErrNotRunning
	}

	id := newRequestID()
	now := m.now()

	m.mu.Lock()
	if lm, ok := m.loaded.Get(p.Key); ok && lm.State == StateLoaded {
		lm.LastUsed = now
		m.attachLocked(lm, p.SessionID)
		m.mu.Unlock()
		t := newTask(id, TaskLoad, p.Key, 0, now)
		t.session = p.SessionID
		m.queue.complete(t, Outcome{Status: StatusSucceeded, AlreadyLoaded: true, CompletedAt: now})
		return LoadTicket{RequestID: id, Key: p.Key, AlreadyLoaded: true}, nil
	}
	prio := m.reg.DefaultPriority(p.Key)
	m.mu.Unlock()
	if p.Priority != nil {
		prio = *p.Priority
	}

	t := newTask(id, TaskLoad, p.Key, prio, now)
	t.session = p.SessionID
	if err := m.queue.push(t); err != nil {
		return LoadTicket{}, err
	}
	m.log.Info().Str("event", "load_queued").Str("request_id", id).Str("model", p.Key.String()).Int("priority", prio).Msg("load request queued")
	return LoadTicket{RequestID: id, Key: p.Key}, nil
}

// Await blocks until the request reaches a terminal outcome or ctx is done.
func (m *Manager) Await(ctx context.Context, requestID string) (Outcome, error) {
	t, _, ok := m.queue.lookup(requestID)
	if !ok {
		return Outcome{}, requestNotFoundError{id: requestID}
	}
	select {
	case <-t.done:
		return t.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// RequestStatus reports the current state of a request without blocking.
func (m *Manager) RequestStatus(requestID string) (Outcome, bool) {
	t, st, ok := m.queue.lookup(requestID)
	if !ok {
		return Outcome{}, false
	}
	if st.Terminal() {
		return t.outcome, true
	}
	return Outcome{RequestID: t.id, Kind: t.kind, Key: t.key, Status: st, SubmittedAt: t.submitted}, true
}

// CancelRequest withdraws a queued request. A request the coordinator has
// already started runs to completion.
func (m *Manager) CancelRequest(requestID string) error {
	if err := m.queue.cancel(requestID, m.now()); err != nil {
		return err
	}
	m.log.Info().Str("event", "load_cancelled").Str("request_id", requestID).Msg("queued request withdrawn")
	return nil
}

// processLoad runs on the coordinator.
func (m *Manager) processLoad(ctx context.Context, t *task) Outcome {
	key := t.key
	ad, ok := m.adapters.Get(key.Provider)
	if !ok {
		return Outcome{Status: StatusFailed, Err: ErrModelNotFound(key.String())}
	}

	estKey := key
	key = m.canonicalKey(ctx, ad, key)

	m.mu.Lock()
	if lm, ok := m.loaded.Get(key); ok && lm.State == StateLoaded {
		lm.LastUsed = m.now()
		m.attachLocked(lm, t.session)
		m.mu.Unlock()
		return Outcome{Status: StatusSucceeded, AlreadyLoaded: true}
	}
	if _, defined := m.reg.Lookup(key); defined {
		estKey = key
	}
	need := m.reg.EstimateMB(estKey)
	idle := m.idleTimeoutLocked(estKey)
	free := m.budgetLocked().FreeMB
	m.mu.Unlock()

	var evicted []types.ModelKey
	if free < need {
		evicted, free = m.evictFor(ctx, need)
	}
	if free < need {
		err := CapacityError{Key: key, NeedMB: need, FreeMB: free, Evicted: evicted}
		m.log.Warn().Str("event", "load_rejected").Str("request_id", t.id).Str("model", key.String()).
			Int("need_mb", need).Int("free_mb", free).Int("evicted", len(evicted)).Msg("insufficient VRAM")
		m.publish(Event{Name: EventLoadRejected, Key: key, RequestID: t.id, VRAMMB: need, Err: err.Error(),
			Fields: map[string]any{"free_mb": free, "evicted": len(evicted)}})
		return Outcome{Status: StatusFailed, Err: err, Evicted: evicted}
	}

	m.mu.Lock()
	lm := &LoadedModel{
		Key:            key,
		VRAMMB:         need,
		State:          StateLoading,
		IdleTimeout:    idle,
		SupportsUnload: ad.SupportsUnload(),
		Sessions:       map[string]struct{}{},
	}
	m.loaded.Set(key, lm)
	m.mu.Unlock()

	m.log.Info().Str("event", "load_start").Str("request_id", t.id).Str("model", key.String()).Int("vram_mb", need).Msg("loading model")
	cctx, cancel := m.opContext(ctx)
	err := ad.Load(cctx, t.key.ModelID)
	cancel()

	now := m.now()
	m.mu.Lock()
	if err != nil {
		lm.State = StateError
		lm.ErrorMessage = err.Error()
		m.mu.Unlock()
		lerr := ProviderLoadError{Key: key, Err: err}
		m.log.Error().Err(err).Str("event", "load_failed").Str("request_id", t.id).Str("model", key.String()).Msg("provider load failed")
		m.publish(Event{Name: EventModelLoadFailed, Key: key, RequestID: t.id, VRAMMB: need, Err: err.Error()})
		return Outcome{Status: StatusFailed, Err: lerr, Evicted: evicted}
	}
	lm.State = StateLoaded
	lm.LoadedAt = now
	lm.LastUsed = now
	lm.ErrorMessage = ""
	m.attachLocked(lm, t.session)
	m.mu.Unlock()

	m.loadsTotal.Add(1)
	m.log.Info().Str("event", "load_done").Str("request_id", t.id).Str("model", key.String()).Int("vram_mb", need).Msg("model loaded")
	m.publish(Event{Name: EventModelLoaded, Key: key, RequestID: t.id, VRAMMB: need, At: now})
	return Outcome{Status: StatusSucceeded, Evicted: evicted, CompletedAt: now}
}

// canonicalKey resolves provider aliases so a model is tracked under the id
// the provider lists it by. Resolution failures keep the requested key and
// leave the error to Load.
func (m *Manager) canonicalKey(ctx context.Context, ad provider.Adapter, key types.ModelKey) types.ModelKey {
	c, ok := ad.(provider.Canonicalizer)
	if !ok {
		return key
	}
	cctx, cancel := m.opContext(ctx)
	id, err := c.CanonicalID(cctx, key.ModelID)
	cancel()
	if err != nil || id == "" || id == key.ModelID {
		return key
	}
	m.log.Debug().Str("model", key.String()).Str("canonical", id).Msg("resolved model alias")
	return types.ModelKey{Provider: key.Provider, ModelID: id}
}
