package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vramd/internal/provider"
	"vramd/internal/registry"
	"vramd/pkg/types"
)

const tracerName = "vramd/internal/manager"

type Manager struct {
	mu sync.RWMutex
	// Insertion-ordered so status listings are stable.
	loaded      *orderedmap.OrderedMap[types.ModelKey, *LoadedModel]
	sessions    map[string]map[types.ModelKey]struct{}
	reg         *registry.Registry
	regDegraded bool
	lastErr     string
	// VRAM released since the telemetry snapshot reclaimSnap was taken. The
	// snapshot still counts it as used until the poller refreshes.
	reclaimSnap types.GpuMetrics
	reclaimedMB int

	adapters  provider.Set
	telemetry Telemetry
	publisher EventPublisher
	log       zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	overrides types.Thresholds
	// set by config; may be 0
	reserveOverride *int
	fallbackMB      int
	opTimeout       time.Duration
	evictActive     bool

	queue *opQueue

	startTime      time.Time
	lifecycle      sync.Mutex
	running        atomic.Bool
	cancel         context.CancelFunc
	done           chan struct{}
	loadsTotal     atomic.Uint64
	evictionsTotal atomic.Uint64
}

func newManager(cfg ManagerConfig) *Manager {
	return &Manager{
		loaded:          orderedmap.New[types.ModelKey, *LoadedModel](),
		sessions:        make(map[string]map[types.ModelKey]struct{}),
		reg:             cfg.Registry,
		regDegraded:     cfg.RegistryDegraded,
		adapters:        cfg.Adapters,
		telemetry:       cfg.Telemetry,
		publisher:       cfg.Publisher,
		log:             cfg.Logger.With().Str("component", "manager").Logger(),
		tracer:          otel.Tracer(tracerName),
		now:             cfg.Now,
		overrides:       cfg.Overrides,
		reserveOverride: cfg.SystemReserveMB,
		fallbackMB:      cfg.TotalVRAMMB,
		opTimeout:       cfg.OpTimeout,
		evictActive:     cfg.EvictActive,
		queue:           newOpQueue(cfg.MaxQueueDepth, cfg.HistorySize),
		startTime:       cfg.Now(),
	}
}

// Start launches the coordinator. A resync of resident models is queued
// first when any adapter can list them.
func (m *Manager) Start(ctx context.Context) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.running.Load() {
		return
	}
	m.running.Store(true)
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	if m.hasListers() {
		t := newTask(newRequestID(), TaskResync, types.ModelKey{}, operatorPriority+1, m.now())
		_ = m.queue.push(t)
	}
	go m.run(ctx)
	m.log.Info().Strs("providers", m.adapters.Names()).Msg("coordinator started")
}

// Close stops the coordinator after the operation in progress and cancels
// every queued request.
func (m *Manager) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if !m.running.Load() {
		return
	}
	m.running.Store(false)
	m.cancel()
	<-m.done
	if n := m.queue.close(m.now()); n > 0 {
		m.log.Info().Int("cancelled", n).Msg("queued requests cancelled on shutdown")
	}
	m.log.Info().Msg("coordinator stopped")
}

// Running reports whether the coordinator loop is alive.
func (m *Manager) Running() bool { return m.running.Load() }

// SetEventPublisher replaces the event sink. Not safe while running.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// SetRegistry swaps the model catalog. Loaded entries keep their recorded
// VRAM; new estimates apply to later loads.
func (m *Manager) SetRegistry(reg *registry.Registry, degraded bool) {
	if reg == nil {
		return
	}
	m.mu.Lock()
	m.reg = reg
	m.regDegraded = degraded
	for pair := m.loaded.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.IdleTimeout = m.idleTimeoutLocked(pair.Key)
	}
	m.mu.Unlock()
	m.log.Info().Int("models", len(reg.Definitions())).Bool("degraded", degraded).Msg("registry updated")
}

// Registry returns the current catalog.
func (m *Manager) Registry() *registry.Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reg
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	for {
		t, ok := m.queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-m.queue.wake:
				continue
			}
		}
		o := m.execute(ctx, t)
		if o.CompletedAt.IsZero() {
			o.CompletedAt = m.now()
		}
		m.queue.complete(t, o)
		m.checkBudget()
		if ctx.Err() != nil {
			return
		}
	}
}

// execute runs one operation inside a span.
func (m *Manager) execute(ctx context.Context, t *task) (o Outcome) {
	ctx, span := m.tracer.Start(ctx, "manager."+string(t.kind), trace.WithAttributes(
		attribute.String("request.id", t.id),
		attribute.Int("request.priority", t.priority),
	))
	if t.key != (types.ModelKey{}) {
		span.SetAttributes(attribute.String("model.key", t.key.String()))
	}
	defer func() {
		if o.Err != nil {
			span.RecordError(o.Err)
			span.SetStatus(codes.Error, o.Err.Error())
		}
		span.End()
	}()

	start := m.now()
	m.log.Debug().Str("event", "op_start").Str("kind", string(t.kind)).Str("request_id", t.id).Str("model", t.key.String()).Msg("coordinator operation")
	switch t.kind {
	case TaskLoad:
		o = m.processLoad(ctx, t)
	case TaskUnload:
		o = m.processUnload(ctx, t)
	case TaskOptimize:
		o = m.processOptimize(ctx, t)
	case TaskResync:
		o = m.processResync(ctx)
	default:
		o = Outcome{Status: StatusFailed, Err: invalidRequestError{msg: "unknown task kind " + string(t.kind)}}
	}
	if o.Err != nil {
		m.mu.Lock()
		m.lastErr = o.Err.Error()
		m.mu.Unlock()
	}
	m.log.Debug().Str("event", "op_done").Str("kind", string(t.kind)).Str("request_id", t.id).
		Str("status", string(o.Status)).Dur("took", m.now().Sub(start)).Msg("coordinator operation")
	return o
}

// opContext bounds a single provider call.
func (m *Manager) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opTimeout)
}

func (m *Manager) hasListers() bool {
	for _, a := range m.adapters {
		if _, ok := a.(provider.Lister); ok {
			return true
		}
	}
	return false
}
