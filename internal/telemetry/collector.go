// Package telemetry samples GPU memory and utilization. Collection is best
// effort: when no driver answers, callers get a mock snapshot flagged with
// IsMock instead of an error.
package telemetry

import (
	"context"
	"errors"

	"vramd/pkg/types"
)

// ErrUnavailable is returned by collectors when the device cannot be queried.
var ErrUnavailable = errors.New("gpu telemetry unavailable")

// Snapshot is one telemetry sample.
type Snapshot struct {
	Metrics   types.GpuMetrics
	Processes []types.GpuProcess
}

// Collector samples a single device.
type Collector interface {
	Collect(ctx context.Context) (Snapshot, error)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(ctx context.Context) (Snapshot, error)

func (f CollectorFunc) Collect(ctx context.Context) (Snapshot, error) { return f(ctx) }
