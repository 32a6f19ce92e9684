package manager

import (
	"context"

	"vramd/internal/provider"
	"vramd/pkg/types"
)

// processResync asks every listing-capable provider which models are
// resident and records the ones the table does not know about. Runs once at
// startup; there is no saved state to resume.
func (m *Manager) processResync(ctx context.Context) Outcome {
	found := []types.ModelKey{}
	var failed []types.ModelKey
	for _, name := range m.adapters.Names() {
		ad, _ := m.adapters.Get(name)
		lister, ok := ad.(provider.Lister)
		if !ok {
			continue
		}
		cctx, cancel := m.opContext(ctx)
		resident, err := lister.ListLoaded(cctx)
		cancel()
		if err != nil {
			m.log.Warn().Err(err).Str("provider", name).Msg("resync: provider listing failed")
			failed = append(failed, types.ModelKey{Provider: name})
			continue
		}
		now := m.now()
		m.mu.Lock()
		for _, r := range resident {
			key := types.ModelKey{Provider: name, ModelID: r.ModelID}
			if _, known := m.loaded.Get(key); known {
				continue
			}
			vram := r.VRAMMB
			if vram <= 0 {
				vram = m.reg.EstimateMB(key)
			}
			m.loaded.Set(key, &LoadedModel{
				Key:            key,
				VRAMMB:         vram,
				State:          StateLoaded,
				LoadedAt:       now,
				LastUsed:       now,
				IdleTimeout:    m.idleTimeoutLocked(key),
				SupportsUnload: ad.SupportsUnload(),
				Sessions:       map[string]struct{}{},
			})
			found = append(found, key)
		}
		m.mu.Unlock()
	}
	if len(found) > 0 {
		m.log.Info().Str("event", "resync").Int("models", len(found)).Msg("rediscovered resident models")
	}
	return Outcome{Status: StatusSucceeded, Failed: failed}
}
