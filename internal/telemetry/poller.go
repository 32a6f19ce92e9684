package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Poller keeps the most recent snapshot for lock-free readers.
type Poller struct {
	collector     Collector
	fallbackTotal int
	interval      time.Duration
	log           zerolog.Logger
	now           func() time.Time

	latest    atomic.Pointer[Snapshot]
	lastTotal atomic.Int64
	failures  atomic.Int64
}

// PollerConfig configures NewPoller.
type PollerConfig struct {
	Collector Collector
	// Total VRAM reported when the collector has never succeeded.
	FallbackTotalMB int
	Interval        time.Duration
	Logger          zerolog.Logger
	Now             func() time.Time
}

// NewPoller returns a poller seeded with a mock snapshot so Latest never
// returns an empty value.
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Collector == nil {
		cfg.Collector = Mock{TotalMB: cfg.FallbackTotalMB, Now: cfg.Now}
	}
	p := &Poller{
		collector:     cfg.Collector,
		fallbackTotal: cfg.FallbackTotalMB,
		interval:      cfg.Interval,
		log:           cfg.Logger.With().Str("component", "telemetry").Logger(),
		now:           cfg.Now,
	}
	p.latest.Store(&Snapshot{Metrics: MockMetrics(cfg.FallbackTotalMB, cfg.Now())})
	return p
}

// Latest returns the last published snapshot.
func (p *Poller) Latest() Snapshot { return *p.latest.Load() }

// Degraded reports whether the current snapshot is synthesized.
func (p *Poller) Degraded() bool { return p.latest.Load().Metrics.IsMock }

// Refresh collects once and publishes the result. Collector failures publish
// a mock snapshot sized from the last real reading.
func (p *Poller) Refresh(ctx context.Context) Snapshot {
	cctx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()
	snap, err := p.collector.Collect(cctx)
	if err != nil {
		n := p.failures.Add(1)
		total := int(p.lastTotal.Load())
		if total <= 0 {
			total = p.fallbackTotal
		}
		// log the first failure loudly, then only periodically
		if n == 1 || n%60 == 0 {
			p.log.Warn().Err(err).Int("total_mb", total).Int64("failures", n).Msg("gpu telemetry unavailable, serving mock snapshot")
		}
		snap = Snapshot{Metrics: MockMetrics(total, p.now())}
	} else {
		if p.failures.Swap(0) > 0 {
			p.log.Info().Str("device", snap.Metrics.Device).Msg("gpu telemetry recovered")
		}
		if !snap.Metrics.IsMock && snap.Metrics.TotalVRAMMB > 0 {
			p.lastTotal.Store(int64(snap.Metrics.TotalVRAMMB))
		}
	}
	p.latest.Store(&snap)
	return snap
}

// Run refreshes on every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.Refresh(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p.Refresh(ctx)
		}
	}
}
