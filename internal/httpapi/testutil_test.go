package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vramd/internal/manager"
	"vramd/internal/provider"
	"vramd/internal/registry"
	"vramd/internal/telemetry"
	"vramd/pkg/types"
)

// stubAdapter loads and unloads instantly; failures are configured per model.
type stubAdapter struct {
	name   string
	sticky bool

	mu        sync.Mutex
	loadErr   map[string]error
	unloadErr map[string]error
	gate      chan struct{}
}

func newStubAdapter(name string, sticky bool) *stubAdapter {
	return &stubAdapter{name: name, sticky: sticky, loadErr: map[string]error{}, unloadErr: map[string]error{}}
}

func (s *stubAdapter) Name() string         { return s.name }
func (s *stubAdapter) SupportsUnload() bool { return !s.sticky }

func (s *stubAdapter) Load(ctx context.Context, id string) error {
	s.mu.Lock()
	gate := s.gate
	err := s.loadErr[id]
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *stubAdapter) Unload(_ context.Context, id string) error {
	if s.sticky {
		return provider.ErrUnloadUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloadErr[id]
}

func (s *stubAdapter) Ping(context.Context) error { return nil }

type fixedTelemetry struct{ snap telemetry.Snapshot }

func (f fixedTelemetry) Latest() telemetry.Snapshot { return f.snap }

type apiEnv struct {
	mgr    *manager.Manager
	ollama *stubAdapter
	store  *registry.Store
	h      http.Handler
}

const testRegistryYAML = `
thresholds:
  system_reserve_mb: 2048
  idle_timeout_seconds: 300
models:
  - {provider: ollama, model_id: "qwen3:8b", estimated_vram_mb: 6144}
  - {provider: ollama, model_id: "llama3.2:3b", estimated_vram_mb: 2048}
  - {provider: ollama, model_id: "hf.co/org/repo:Q4", estimated_vram_mb: 1024}
  - {provider: vllm, model_id: default, estimated_vram_mb: 16384}
`

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	p := writeTemp(t, "models.yaml", testRegistryYAML)
	store := registry.NewStore(p)
	env := &apiEnv{ollama: newStubAdapter("ollama", false), store: store}
	tel := fixedTelemetry{snap: telemetry.Snapshot{
		Metrics:   telemetry.MockMetrics(16384, time.Now()),
		Processes: []types.GpuProcess{{PID: 42, Name: "ollama", UsedMB: 512}},
	}}
	env.mgr = manager.NewWithConfig(manager.ManagerConfig{
		Registry:  store.Current().Registry,
		Adapters:  provider.NewSet(env.ollama, newStubAdapter("vllm", true)),
		Telemetry: tel,
		Logger:    zerolog.Nop(),
		OpTimeout: time.Second,
	})
	store.Subscribe(func(r registry.Result) { env.mgr.SetRegistry(r.Registry, r.Degraded) })
	env.mgr.Start(context.Background())
	t.Cleanup(env.mgr.Close)
	env.h = NewMux(Deps{Service: env.mgr, Registry: store, Telemetry: tel})
	return env
}

func (e *apiEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

// loadAndWait loads through the API and waits for the outcome.
func (e *apiEnv) loadAndWait(t *testing.T, provider, id, session string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"provider":"` + provider + `","model_id":"` + id + `"`
	if session != "" {
		body += `,"session_id":"` + session + `"`
	}
	body += `}`
	return e.do(t, http.MethodPost, "/models/load?wait=1", body)
}
