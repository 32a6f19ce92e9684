package manager

import (
	"time"

	"github.com/google/uuid"

	"vramd/pkg/types"
)

func newRequestID() string { return uuid.NewString() }

// budget is the VRAM accounting at one instant.
type budget struct {
	TotalMB     int
	ReserveMB   int
	CommittedMB int
	FreeMB      int
	Metrics     types.GpuMetrics
}

// thresholdsLocked merges config overrides over the registry thresholds.
func (m *Manager) thresholdsLocked() types.Thresholds {
	th := m.reg.Thresholds()
	o := m.overrides
	if o.WarningPercent > 0 {
		th.WarningPercent = o.WarningPercent
	}
	if o.CriticalPercent > 0 {
		th.CriticalPercent = o.CriticalPercent
	}
	if o.IdleTimeoutSeconds > 0 {
		th.IdleTimeoutSeconds = o.IdleTimeoutSeconds
	}
	if o.SystemReserveMB > 0 {
		th.SystemReserveMB = o.SystemReserveMB
	}
	if m.reserveOverride != nil {
		th.SystemReserveMB = *m.reserveOverride
	}
	if o.TotalVRAMMB > 0 {
		th.TotalVRAMMB = o.TotalVRAMMB
	}
	return th
}

// idleTimeoutLocked returns how long key may sit unused: the per-model
// registry value when set, else the effective global timeout.
func (m *Manager) idleTimeoutLocked(key types.ModelKey) time.Duration {
	if d, ok := m.reg.Lookup(key); ok && d.IdleTimeoutSeconds > 0 {
		return time.Duration(d.IdleTimeoutSeconds) * time.Second
	}
	return time.Duration(m.thresholdsLocked().IdleTimeoutSeconds) * time.Second
}

// Thresholds returns the effective scheduling limits.
func (m *Manager) Thresholds() types.Thresholds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thresholdsLocked()
}

// budgetLocked computes free VRAM as the smaller of the accounting view
// (total - reserve - committed) and what the driver observes free, plus
// whatever was unloaded since that observation. The observed value is
// ignored for mock telemetry.
func (m *Manager) budgetLocked() budget {
	th := m.thresholdsLocked()
	met := m.telemetry.Latest().Metrics
	b := budget{ReserveMB: th.SystemReserveMB, Metrics: met}
	switch {
	case th.TotalVRAMMB > 0:
		b.TotalMB = th.TotalVRAMMB
	case met.TotalVRAMMB > 0:
		b.TotalMB = met.TotalVRAMMB
	default:
		b.TotalMB = m.fallbackMB
	}
	for pair := m.loaded.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.State.holdsVRAM() {
			b.CommittedMB += pair.Value.VRAMMB
		}
	}
	b.FreeMB = b.TotalMB - b.ReserveMB - b.CommittedMB
	if !met.IsMock {
		observed := met.FreeVRAMMB
		if met == m.reclaimSnap {
			observed += m.reclaimedMB
		}
		b.FreeMB = min(b.FreeMB, observed)
	}
	if b.FreeMB < 0 {
		b.FreeMB = 0
	}
	return b
}

// creditReclaimedLocked records an unload that the current telemetry
// snapshot cannot have seen yet. A new snapshot resets the credit.
func (m *Manager) creditReclaimedLocked(mb int) {
	met := m.telemetry.Latest().Metrics
	if met != m.reclaimSnap {
		m.reclaimSnap = met
		m.reclaimedMB = 0
	}
	m.reclaimedMB += mb
}

func (m *Manager) freeMB() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.budgetLocked().FreeMB
}

// checkBudget logs when committed VRAM exceeds the budget. Only resync of
// models loaded behind our back can cause it.
func (m *Manager) checkBudget() {
	m.mu.RLock()
	b := m.budgetLocked()
	m.mu.RUnlock()
	if b.CommittedMB+b.ReserveMB > b.TotalMB {
		m.log.Warn().Int("committed_mb", b.CommittedMB).Int("reserve_mb", b.ReserveMB).Int("total_mb", b.TotalMB).Msg("committed VRAM exceeds budget")
	}
}

func (m *Manager) publish(e Event) {
	if e.At.IsZero() {
		e.At = m.now()
	}
	m.publisher.Publish(e)
}
