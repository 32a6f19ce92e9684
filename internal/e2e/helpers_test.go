package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vramd/internal/httpapi"
	"vramd/internal/manager"
	"vramd/internal/metrics"
	"vramd/internal/natspub"
	"vramd/internal/provider"
	"vramd/internal/registry"
	"vramd/internal/telemetry"
)

// fakeOllama speaks the subset of the Ollama API the adapter uses.
type fakeOllama struct {
	mu       sync.Mutex
	resident map[string]int64
	calls    []generateCall
}

type generateCall struct {
	Model     string `json:"model"`
	KeepAlive int    `json:"keep_alive"`
}

func newFakeOllama(t *testing.T, resident map[string]int64) (*fakeOllama, *httptest.Server) {
	t.Helper()
	if resident == nil {
		resident = map[string]int64{}
	}
	f := &fakeOllama{resident: resident}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"0.0.0-test"}`))
	})
	mux.HandleFunc("/api/ps", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		type entry struct {
			Model    string `json:"model"`
			SizeVRAM int64  `json:"size_vram"`
		}
		out := struct {
			Models []entry `json:"models"`
		}{Models: []entry{}}
		for m, sz := range f.resident {
			out.Models = append(out.Models, entry{Model: m, SizeVRAM: sz})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var c generateCall
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.calls = append(f.calls, c)
		if c.KeepAlive == 0 {
			delete(f.resident, c.Model)
		} else {
			f.resident[c.Model] = 1
		}
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"done":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeOllama) generateCalls() []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generateCall(nil), f.calls...)
}

// recordingConn captures NATS publishes.
type recordingConn struct {
	mu   sync.Mutex
	msgs map[string][][]byte
}

func (c *recordingConn) Publish(subj string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.msgs == nil {
		c.msgs = map[string][][]byte{}
	}
	c.msgs[subj] = append(c.msgs[subj], data)
	return nil
}

func (c *recordingConn) count(subj string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs[subj])
}

func (c *recordingConn) all(subj string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.msgs[subj]...)
}

// stack is a fully wired daemon minus the listener and the GPU.
type stack struct {
	srv    *httptest.Server
	mgr    *manager.Manager
	store  *registry.Store
	ollama *fakeOllama
	nats   *recordingConn
	regPth string
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func dirOf(p string) string { return filepath.Dir(p) }

func newStack(t *testing.T, registryYAML string, resident map[string]int64) *stack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	regPath := writeFile(t, t.TempDir(), "models.yaml", registryYAML)
	store := registry.NewStore(regPath)

	oll, ollSrv := newFakeOllama(t, resident)
	adapters := provider.FromEndpoints(provider.Endpoints{Ollama: ollSrv.URL}, 5*time.Second)

	poller := telemetry.NewPoller(telemetry.PollerConfig{FallbackTotalMB: 16384, Interval: time.Hour, Logger: zerolog.Nop()})
	poller.Refresh(ctx)

	conn := &recordingConn{}
	pub := natspub.NewPublisher(conn, natspub.DefaultPrefix, zerolog.Nop())
	go func() { _ = pub.Run(ctx) }()

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:    store.Current().Registry,
		Adapters:    adapters,
		Telemetry:   poller,
		Publisher:   manager.MultiPublisher{metrics.NewExporter(), pub},
		Logger:      zerolog.Nop(),
		OpTimeout:   5 * time.Second,
		EvictActive: true,
	})
	store.Subscribe(func(r registry.Result) { mgr.SetRegistry(r.Registry, r.Degraded) })
	mgr.Start(ctx)
	t.Cleanup(mgr.Close)

	srv := httptest.NewServer(httpapi.NewMux(httpapi.Deps{Service: mgr, Registry: store, Telemetry: poller}))
	t.Cleanup(srv.Close)
	return &stack{srv: srv, mgr: mgr, store: store, ollama: oll, nats: conn, regPth: regPath}
}

func (s *stack) call(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}
