package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	mu    sync.Mutex
	calls []ollamaGenerate
}

func newOllamaServer(t *testing.T, rec *recorded, fail bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var body ollamaGenerate
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.mu.Lock()
		rec.calls = append(rec.calls, body)
		rec.mu.Unlock()
		if fail {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"done":true}`))
	})
	mux.HandleFunc("/api/ps", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"qwen3:8b","model":"qwen3:8b","size_vram":6442450944},{"name":"llama3.2:3b","size_vram":2147483648}]}`))
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"0.12.0"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaLoadUnload(t *testing.T) {
	rec := &recorded{}
	srv := newOllamaServer(t, rec, false)
	o := NewOllama(srv.URL, time.Second)
	ctx := context.Background()

	require.True(t, o.SupportsUnload())
	require.NoError(t, o.Load(ctx, "qwen3:8b"))
	require.NoError(t, o.Unload(ctx, "qwen3:8b"))
	require.NoError(t, o.Ping(ctx))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.calls, 2)
	assert.Equal(t, ollamaGenerate{Model: "qwen3:8b", KeepAlive: -1}, rec.calls[0])
	assert.Equal(t, ollamaGenerate{Model: "qwen3:8b", KeepAlive: 0}, rec.calls[1])
}

func TestOllamaLoadFailureCarriesStatus(t *testing.T) {
	srv := newOllamaServer(t, &recorded{}, true)
	err := NewOllama(srv.URL, time.Second).Load(context.Background(), "missing")
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "model not found")
}

func TestOllamaListLoaded(t *testing.T) {
	srv := newOllamaServer(t, &recorded{}, false)
	got, err := NewOllama(srv.URL, time.Second).ListLoaded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Loaded{{ModelID: "qwen3:8b", VRAMMB: 6144}, {ModelID: "llama3.2:3b", VRAMMB: 2048}}, got)
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	err := NewOllama(url, 200*time.Millisecond).Load(context.Background(), "x")
	assert.Error(t, err)
}

func newVLLMServer(t *testing.T, ids ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		var body openAIModels
		for _, id := range ids {
			body.Data = append(body.Data, struct {
				ID string `json:"id"`
			}{ID: id})
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVLLMLoadChecksServedModel(t *testing.T) {
	srv := newVLLMServer(t, "Qwen/Qwen2.5-7B-Instruct")
	v := NewVLLM(srv.URL, time.Second)
	ctx := context.Background()

	assert.False(t, v.SupportsUnload())
	assert.NoError(t, v.Load(ctx, "Qwen/Qwen2.5-7B-Instruct"))
	assert.NoError(t, v.Load(ctx, DefaultModel))
	assert.Error(t, v.Load(ctx, "other/model"))
	assert.ErrorIs(t, v.Unload(ctx, "Qwen/Qwen2.5-7B-Instruct"), ErrUnloadUnsupported)

	listed, err := v.ListLoaded(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Loaded{{ModelID: "Qwen/Qwen2.5-7B-Instruct"}}, listed)
}

func TestVLLMCanonicalizesDefault(t *testing.T) {
	srv := newVLLMServer(t, "Qwen/Qwen2.5-7B-Instruct")
	var v Adapter = NewVLLM(srv.URL, time.Second)
	c, ok := v.(Canonicalizer)
	require.True(t, ok)
	ctx := context.Background()

	id, err := c.CanonicalID(ctx, DefaultModel)
	require.NoError(t, err)
	assert.Equal(t, "Qwen/Qwen2.5-7B-Instruct", id)

	id, err = c.CanonicalID(ctx, "other/model")
	require.NoError(t, err)
	assert.Equal(t, "other/model", id)

	_, err = NewVLLM(newVLLMServer(t).URL, time.Second).CanonicalID(ctx, DefaultModel)
	assert.Error(t, err)
}

func TestVLLMEmptyServerFailsLoad(t *testing.T) {
	srv := newVLLMServer(t)
	assert.Error(t, NewVLLM(srv.URL, time.Second).Load(context.Background(), DefaultModel))
}

func TestTTSLoadUsesHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" || !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tts := NewTTS(srv.URL, time.Second)
	assert.NoError(t, tts.Load(context.Background(), "kokoro"))
	healthy.Store(false)
	assert.Error(t, tts.Load(context.Background(), "kokoro"))
	assert.ErrorIs(t, tts.Unload(context.Background(), "kokoro"), ErrUnloadUnsupported)
}

func TestSetFromEndpoints(t *testing.T) {
	s := FromEndpoints(Endpoints{Ollama: "http://127.0.0.1:11434", TTS: "http://127.0.0.1:8880"}, time.Second)
	assert.Equal(t, []string{"ollama", "tts"}, s.Names())
	_, ok := s.Get("vllm")
	assert.False(t, ok)
	a, ok := s.Get("ollama")
	require.True(t, ok)
	assert.True(t, a.SupportsUnload())
}
