package telemetry

import (
	"context"
	"time"

	"vramd/pkg/types"
)

// Mock reports an idle device of the configured size.
type Mock struct {
	TotalMB int
	Now     func() time.Time
}

func (m Mock) Collect(_ context.Context) (Snapshot, error) {
	return Snapshot{Metrics: MockMetrics(m.TotalMB, m.now())}, nil
}

func (m Mock) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// MockMetrics synthesizes a snapshot for a device of totalMB with nothing
// observed in use.
func MockMetrics(totalMB int, at time.Time) types.GpuMetrics {
	if totalMB < 0 {
		totalMB = 0
	}
	return types.GpuMetrics{
		Device:      "mock",
		TotalVRAMMB: totalMB,
		FreeVRAMMB:  totalMB,
		IsMock:      true,
		CollectedAt: at.Unix(),
	}
}
