package natspub

import (
	"context"
	"time"

	"vramd/pkg/types"
)

// WarningInterval bounds how often a VRAM warning is re-published while usage
// stays above the threshold.
const WarningInterval = 60 * time.Second

// StatusSource returns the current scheduler status and thresholds.
type StatusSource interface {
	Status() types.StatusResponse
	Thresholds() types.Thresholds
}

// Broadcaster publishes status.v1 on every tick and vram.warning.v1 when
// usage crosses the warning threshold.
type Broadcaster struct {
	pub      *Publisher
	src      StatusSource
	interval time.Duration
	now      func() time.Time

	lastWarning time.Time
}

func NewBroadcaster(pub *Publisher, src StatusSource, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Broadcaster{pub: pub, src: src, interval: interval, now: time.Now}
}

func (b *Broadcaster) Run(ctx context.Context) error {
	t := time.NewTicker(b.interval)
	defer t.Stop()
	b.Tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			b.Tick()
		}
	}
}

// Tick publishes one status message and, if due, a warning.
func (b *Broadcaster) Tick() {
	st := b.src.Status()
	b.pub.Send("status", st)
	if w, ok := b.warning(st, b.src.Thresholds()); ok {
		b.pub.Send("vram.warning", w)
	}
}

func (b *Broadcaster) warning(st types.StatusResponse, th types.Thresholds) (types.VRAMWarningEvent, bool) {
	used, total := st.Metrics.UsedVRAMMB, st.Metrics.TotalVRAMMB
	// mock telemetry reports nothing in use; fall back to what we committed
	if st.Metrics.IsMock {
		used = st.CommittedMB
	}
	if total <= 0 || th.WarningPercent <= 0 {
		return types.VRAMWarningEvent{}, false
	}
	pct := float64(used) / float64(total) * 100
	if pct < th.WarningPercent {
		return types.VRAMWarningEvent{}, false
	}
	now := b.now()
	if !b.lastWarning.IsZero() && now.Sub(b.lastWarning) < WarningInterval {
		return types.VRAMWarningEvent{}, false
	}
	b.lastWarning = now
	ev := types.VRAMWarningEvent{
		Level:            "warning",
		VRAMUsagePercent: pct,
		ThresholdPercent: th.WarningPercent,
		UsedVRAMMB:       used,
		TotalVRAMMB:      total,
		IsMock:           st.Metrics.IsMock,
		Timestamp:        now.Unix(),
	}
	if th.CriticalPercent > 0 && pct >= th.CriticalPercent {
		ev.Level = "critical"
		ev.ThresholdPercent = th.CriticalPercent
	}
	return ev, true
}
