package manager

import (
	"context"
	"time"

	"vramd/internal/provider"
	"vramd/pkg/types"
)

const pingTimeout = 2 * time.Second

// HealthReport describes runtime checks for external dependencies.
type HealthReport struct {
	CoordinatorAlive  bool
	TelemetryDegraded bool
	RegistryDegraded  bool
	Providers         []types.ProviderHealth
}

// Ready reports whether the manager can admit work. Degraded telemetry does
// not make it unready.
func (r HealthReport) Ready() bool { return r.CoordinatorAlive }

// Health pings every provider that supports it. It does not mutate state and
// is safe to call at any time.
func (m *Manager) Health(ctx context.Context) HealthReport {
	m.mu.RLock()
	regDegraded := m.regDegraded
	m.mu.RUnlock()
	r := HealthReport{
		CoordinatorAlive:  m.Running(),
		TelemetryDegraded: m.telemetry.Latest().Metrics.IsMock,
		RegistryDegraded:  regDegraded,
	}
	for _, name := range m.adapters.Names() {
		ad, _ := m.adapters.Get(name)
		ph := types.ProviderHealth{Name: name, SupportsUnload: ad.SupportsUnload(), Reachable: true}
		if p, ok := ad.(provider.Pinger); ok {
			cctx, cancel := context.WithTimeout(ctx, pingTimeout)
			if err := p.Ping(cctx); err != nil {
				ph.Reachable = false
				ph.Error = err.Error()
			}
			cancel()
		}
		r.Providers = append(r.Providers, ph)
	}
	return r
}
