package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vramd/internal/provider"
	"vramd/internal/registry"
	"vramd/pkg/types"
)

var (
	qwen  = types.ModelKey{Provider: "ollama", ModelID: "qwen3:8b"}
	llama = types.ModelKey{Provider: "ollama", ModelID: "llama3.2:3b"}
	vllm  = types.ModelKey{Provider: "vllm", ModelID: "default"}
	voice = types.ModelKey{Provider: "tts", ModelID: "kokoro"}
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeAdapter is a lightweight in-memory provider used for tests.
type fakeAdapter struct {
	name   string
	sticky bool

	mu        sync.Mutex
	loadErr   map[string]error
	unloadErr map[string]error
	loads     []string
	unloads   []string
	resident  []provider.Loaded
	// when set, Load blocks until the channel is closed or ctx is done
	gate    chan struct{}
	started chan string
}

func newFakeAdapter(name string, sticky bool) *fakeAdapter {
	return &fakeAdapter{name: name, sticky: sticky, loadErr: map[string]error{}, unloadErr: map[string]error{}}
}

func (f *fakeAdapter) Name() string         { return f.name }
func (f *fakeAdapter) SupportsUnload() bool { return !f.sticky }

func (f *fakeAdapter) Load(ctx context.Context, id string) error {
	f.mu.Lock()
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- id
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, id)
	return f.loadErr[id]
}

func (f *fakeAdapter) Unload(_ context.Context, id string) error {
	if f.sticky {
		return provider.ErrUnloadUnsupported
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloads = append(f.unloads, id)
	return f.unloadErr[id]
}

func (f *fakeAdapter) setGate(gate chan struct{}, started chan string) {
	f.mu.Lock()
	f.gate, f.started = gate, started
	f.mu.Unlock()
}

func (f *fakeAdapter) loadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

func (f *fakeAdapter) unloadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unloads...)
}

// listingAdapter also reports resident models.
type listingAdapter struct{ *fakeAdapter }

func (l listingAdapter) ListLoaded(context.Context) ([]provider.Loaded, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resident == nil {
		return nil, errors.New("listing unavailable")
	}
	return append([]provider.Loaded(nil), l.resident...), nil
}

type testEnv struct {
	m      *Manager
	clock  *fakeClock
	ollama *fakeAdapter
	vllm   *fakeAdapter
	tts    *fakeAdapter
	events *MemoryPublisher
}

func testRegistry() *registry.Registry {
	return registry.New(types.Thresholds{
		WarningPercent:     80,
		CriticalPercent:    95,
		IdleTimeoutSeconds: 300,
		SystemReserveMB:    2048,
	},
		types.ModelDefinition{Key: qwen, EstimatedVRAMMB: 6144, DefaultPriority: 5},
		types.ModelDefinition{Key: llama, EstimatedVRAMMB: 2048, DefaultPriority: 5},
		types.ModelDefinition{Key: vllm, EstimatedVRAMMB: 16384, DefaultPriority: 7},
		types.ModelDefinition{Key: voice, EstimatedVRAMMB: 1024, DefaultPriority: 5},
	)
}

// newTestEnv builds and starts a manager on a 16384 MB mock device.
func newTestEnv(t *testing.T, mutate func(*ManagerConfig)) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:  newFakeClock(),
		ollama: newFakeAdapter("ollama", false),
		vllm:   newFakeAdapter("vllm", true),
		tts:    newFakeAdapter("tts", true),
		events: NewMemoryPublisher(),
	}
	cfg := ManagerConfig{
		Registry:    testRegistry(),
		Adapters:    provider.NewSet(env.ollama, env.vllm, env.tts),
		Publisher:   env.events,
		Logger:      zerolog.Nop(),
		TotalVRAMMB: 16384,
		OpTimeout:   time.Second,
		Now:         env.clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	env.m = NewWithConfig(cfg)
	env.m.Start(context.Background())
	t.Cleanup(env.m.Close)
	return env
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func (e *testEnv) load(t *testing.T, key types.ModelKey, session string) Outcome {
	t.Helper()
	tk, err := e.m.RequestLoad(LoadParams{Key: key, SessionID: session})
	if err != nil {
		t.Fatalf("RequestLoad %s: %v", key, err)
	}
	o, err := e.m.Await(testCtx(t), tk.RequestID)
	if err != nil {
		t.Fatalf("Await %s: %v", key, err)
	}
	return o
}

func (e *testEnv) mustLoad(t *testing.T, key types.ModelKey, session string) {
	t.Helper()
	if o := e.load(t, key, session); !o.Success() {
		t.Fatalf("load %s failed: %v", key, o.Err)
	}
}

func (e *testEnv) state(key types.ModelKey) State {
	lm, ok := e.m.Model(key)
	if !ok {
		return StateUnloaded
	}
	return lm.State
}

// assertBudget checks committed + reserve <= total.
func (e *testEnv) assertBudget(t *testing.T) {
	t.Helper()
	st := e.m.Status()
	if st.CommittedMB+st.SystemReserveMB > st.Metrics.TotalVRAMMB {
		t.Fatalf("budget violated: committed %d + reserve %d > total %d", st.CommittedMB, st.SystemReserveMB, st.Metrics.TotalVRAMMB)
	}
}
