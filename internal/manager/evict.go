package manager

import (
	"context"
	"slices"
	"time"

	"vramd/pkg/types"
)

// candidatesLocked returns LOADED, unprotected, unload-capable models in
// eviction order: idle ones first, then least recently used. Non-idle models
// are included only when includeActive is set.
func (m *Manager) candidatesLocked(now time.Time, includeActive bool, skip map[types.ModelKey]bool) []*LoadedModel {
	var out []*LoadedModel
	for pair := m.loaded.Oldest(); pair != nil; pair = pair.Next() {
		lm := pair.Value
		if lm.State != StateLoaded || lm.Protected() || !lm.SupportsUnload || skip[lm.Key] {
			continue
		}
		if !includeActive && !lm.IsIdle(now) {
			continue
		}
		out = append(out, lm)
	}
	slices.SortStableFunc(out, func(a, b *LoadedModel) int {
		ai, bi := a.IsIdle(now), b.IsIdle(now)
		if ai != bi {
			if ai {
				return -1
			}
			return 1
		}
		return a.LastUsed.Compare(b.LastUsed)
	})
	return out
}

// evictFor unloads candidates one at a time until needMB fits or none are
// left. A failed unload leaves that model loaded and moves on to the next.
// Evictions are never rolled back.
func (m *Manager) evictFor(ctx context.Context, needMB int) (evicted []types.ModelKey, freeMB int) {
	skip := map[types.ModelKey]bool{}
	for {
		m.mu.Lock()
		freeMB = m.budgetLocked().FreeMB
		if freeMB >= needMB {
			m.mu.Unlock()
			return evicted, freeMB
		}
		cands := m.candidatesLocked(m.now(), m.evictActive, skip)
		if len(cands) == 0 {
			m.mu.Unlock()
			return evicted, freeMB
		}
		victim := cands[0]
		m.mu.Unlock()

		m.log.Info().Str("event", "evict").Str("model", victim.Key.String()).Int("need_mb", needMB).Int("free_mb", freeMB).Msg("evicting to make room")
		if err := m.unloadEntry(ctx, victim.Key, unloadOpts{reason: ReasonEvicted, requireIdle: !m.evictActive}); err != nil {
			skip[victim.Key] = true
			continue
		}
		m.evictionsTotal.Add(1)
		evicted = append(evicted, victim.Key)
	}
}
