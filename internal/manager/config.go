package manager

import (
	"time"

	"github.com/rs/zerolog"

	"vramd/internal/provider"
	"vramd/internal/registry"
	"vramd/internal/telemetry"
	"vramd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 64
	defaultOpTimeout     = 120 * time.Second
	defaultHistorySize   = 1024
	defaultTotalVRAMMB   = 16384
)

// Telemetry supplies the latest GPU snapshot. telemetry.Poller satisfies it.
type Telemetry interface {
	Latest() telemetry.Snapshot
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry *registry.Registry
	// RegistryDegraded marks a registry that fell back to built-in defaults.
	RegistryDegraded bool
	Adapters         provider.Set
	Telemetry        Telemetry
	Publisher        EventPublisher
	Logger           zerolog.Logger

	// Non-zero fields override the registry thresholds.
	Overrides types.Thresholds
	// Explicit system reserve. nil defers to Overrides and the registry; a
	// pointer to 0 removes the reserve.
	SystemReserveMB *int
	// Device size used when neither the registry nor telemetry provide one.
	TotalVRAMMB int

	MaxQueueDepth int
	// Bound on a single provider call. Exceeding it fails the operation.
	OpTimeout time.Duration
	// Number of completed request outcomes retained for lookup.
	HistorySize int
	// EvictActive lets admission evict loaded models that are not idle yet,
	// least recently used first, after every idle candidate.
	EvictActive bool

	Now func() time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig. Call Start to run
// the coordinator.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.Registry == nil {
		cfg.Registry = registry.Defaults()
	}
	if cfg.Adapters == nil {
		cfg.Adapters = provider.Set{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.TotalVRAMMB <= 0 {
		cfg.TotalVRAMMB = defaultTotalVRAMMB
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = staticTelemetry{total: cfg.TotalVRAMMB, now: cfg.Now}
	}
	return newManager(cfg)
}

// staticTelemetry reports a mock device of a fixed size.
type staticTelemetry struct {
	total int
	now   func() time.Time
}

func (s staticTelemetry) Latest() telemetry.Snapshot {
	return telemetry.Snapshot{Metrics: telemetry.MockMetrics(s.total, s.now())}
}
