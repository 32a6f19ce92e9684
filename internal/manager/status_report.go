package manager

import (
	"time"

	"vramd/pkg/types"
)

// Model returns a copy of the entry for key.
func (m *Manager) Model(key types.ModelKey) (LoadedModel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lm, ok := m.loaded.Get(key)
	if !ok {
		return LoadedModel{}, false
	}
	return lm.clone(), true
}

// Models returns copies of every table entry in insertion order.
func (m *Manager) Models() []LoadedModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LoadedModel, 0, m.loaded.Len())
	for pair := m.loaded.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.clone())
	}
	return out
}

// Status builds a detailed status response for /status. It never waits on
// the admission queue or a provider call.
func (m *Manager) Status() types.StatusResponse {
	qs := m.queue.snapshot()
	now := m.now()

	m.mu.RLock()
	b := m.budgetLocked()
	resp := types.StatusResponse{
		Metrics:         b.Metrics,
		BudgetMB:        b.TotalMB - b.ReserveMB,
		CommittedMB:     b.CommittedMB,
		SystemReserveMB: b.ReserveMB,
		FreeBudgetMB:    b.FreeMB,
		Queue:           qs,
		Degraded:        b.Metrics.IsMock || m.regDegraded,
		UptimeSeconds:   int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:  now.Unix(),
		LoadsTotal:      m.loadsTotal.Load(),
		EvictionsTotal:  m.evictionsTotal.Load(),
		LastError:       m.lastErr,
		Models:          make([]types.LoadedModelStatus, 0, m.loaded.Len()),
	}
	for pair := m.loaded.Oldest(); pair != nil; pair = pair.Next() {
		lm := pair.Value
		st := modelStatus(lm, now)
		resp.Models = append(resp.Models, st)
		switch lm.State {
		case StateLoaded:
			resp.LoadedCount++
			if st.IsIdle {
				resp.IdleCount++
			} else {
				resp.ActiveCount++
			}
		case StateError:
			resp.ErrorCount++
		}
	}
	m.mu.RUnlock()
	return resp
}

func modelStatus(lm *LoadedModel, now time.Time) types.LoadedModelStatus {
	st := types.LoadedModelStatus{
		ModelKey:           lm.Key.String(),
		Provider:           lm.Key.Provider,
		ModelID:            lm.Key.ModelID,
		State:              string(lm.State),
		VRAMMB:             lm.VRAMMB,
		IdleTimeoutSeconds: int(lm.IdleTimeout.Seconds()),
		SupportsUnload:     lm.SupportsUnload,
		ErrorMessage:       lm.ErrorMessage,
		Sessions:           sortedSessions(lm.Sessions),
	}
	if !lm.LoadedAt.IsZero() {
		st.LoadedAt = lm.LoadedAt.Unix()
	}
	if !lm.LastUsed.IsZero() {
		st.LastUsed = lm.LastUsed.Unix()
		st.IdleSeconds = int64(now.Sub(lm.LastUsed).Seconds())
		st.IsIdle = lm.State == StateLoaded && lm.IsIdle(now)
	}
	return st
}

// QueueStatus reports pending and in-progress coordinator operations.
func (m *Manager) QueueStatus() types.QueueStatus { return m.queue.snapshot() }

// MetricsSummary condenses the latest telemetry.
func (m *Manager) MetricsSummary() types.MetricsSummary {
	m.mu.RLock()
	b := m.budgetLocked()
	loaded := 0
	for pair := m.loaded.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.State == StateLoaded {
			loaded++
		}
	}
	m.mu.RUnlock()
	met := b.Metrics
	return types.MetricsSummary{
		TotalVRAMMB:        met.TotalVRAMMB,
		UsedVRAMMB:         met.UsedVRAMMB,
		FreeVRAMMB:         met.FreeVRAMMB,
		VRAMUsagePercent:   met.VRAMUsagePercent(),
		UtilizationPercent: met.UtilizationPercent,
		TemperatureC:       met.TemperatureC,
		LoadedCount:        loaded,
		IsMock:             met.IsMock,
	}
}

// ListModels lists table entries, optionally filtered by provider. With
// includeUnloaded, registry models with no entry are listed as unloaded.
func (m *Manager) ListModels(providerName string, includeUnloaded bool) []types.ModelListing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []types.ModelListing{}
	seen := map[types.ModelKey]bool{}
	for pair := m.loaded.Oldest(); pair != nil; pair = pair.Next() {
		lm := pair.Value
		seen[lm.Key] = true
		if providerName != "" && lm.Key.Provider != providerName {
			continue
		}
		def, inReg := m.reg.Lookup(lm.Key)
		out = append(out, types.ModelListing{
			ModelKey:        lm.Key.String(),
			Provider:        lm.Key.Provider,
			ModelID:         lm.Key.ModelID,
			State:           string(lm.State),
			VRAMMB:          lm.VRAMMB,
			DefaultPriority: m.reg.DefaultPriority(lm.Key),
			InRegistry:      inReg,
			Description:     def.Description,
		})
	}
	if !includeUnloaded {
		return out
	}
	for _, def := range m.reg.Definitions() {
		if seen[def.Key] || (providerName != "" && def.Key.Provider != providerName) {
			continue
		}
		out = append(out, types.ModelListing{
			ModelKey:        def.Key.String(),
			Provider:        def.Key.Provider,
			ModelID:         def.Key.ModelID,
			State:           string(StateUnloaded),
			VRAMMB:          def.EstimatedVRAMMB,
			DefaultPriority: def.DefaultPriority,
			InRegistry:      true,
			Description:     def.Description,
		})
	}
	return out
}
