package metrics

import (
	"context"
	"time"

	"vramd/internal/manager"
	"vramd/pkg/types"
)

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Exporter mirrors status snapshots into gauges and lifecycle events into
// counters. It implements manager.EventPublisher.
type Exporter struct{}

func NewExporter() *Exporter { return &Exporter{} }

// Observe sets every gauge from st.
func (e *Exporter) Observe(st types.StatusResponse) {
	m := st.Metrics
	GPUVRAMTotal.Set(float64(m.TotalVRAMMB))
	GPUVRAMUsed.Set(float64(m.UsedVRAMMB))
	GPUVRAMFree.Set(float64(m.FreeVRAMMB))
	GPUUtilization.Set(m.UtilizationPercent)
	GPUTemperature.Set(m.TemperatureC)
	TelemetryMock.Set(boolGauge(m.IsMock))

	LoadedModels.Set(float64(st.LoadedCount))
	CommittedVRAM.Set(float64(st.CommittedMB))
	FreeBudget.Set(float64(st.FreeBudgetMB))
	QueuePending.Set(float64(st.Queue.PendingCount))
	QueueProcessing.Set(float64(st.Queue.ProcessingCount))

	// entries come and go; rebuild the vector each time
	ModelLoaded.Reset()
	for _, lm := range st.Models {
		ModelLoaded.WithLabelValues(lm.Provider, lm.ModelID, lm.State).Set(float64(lm.VRAMMB))
	}
}

func (e *Exporter) Publish(ev manager.Event) {
	p := ev.Key.Provider
	switch ev.Name {
	case manager.EventModelLoaded:
		LoadsTotal.WithLabelValues(p, "success").Inc()
	case manager.EventModelLoadFailed:
		LoadsTotal.WithLabelValues(p, "failed").Inc()
	case manager.EventLoadRejected:
		LoadsTotal.WithLabelValues(p, "rejected").Inc()
		CapacityRejections.Inc()
	case manager.EventModelUnloaded:
		UnloadsTotal.WithLabelValues(p, string(ev.Reason)).Inc()
	case manager.EventModelUnloadFailed:
		UnloadFailures.WithLabelValues(p).Inc()
	}
}

// Run observes source every interval until ctx is done.
func (e *Exporter) Run(ctx context.Context, interval time.Duration, source func() types.StatusResponse) error {
	e.Observe(source())
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			e.Observe(source())
		}
	}
}
