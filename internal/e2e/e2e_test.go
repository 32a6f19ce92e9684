package e2e

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vramd/pkg/types"
)

const registryYAML = `
thresholds:
  system_reserve_mb: 2048
  idle_timeout_seconds: 300
models:
  - {provider: ollama, model_id: "qwen3:8b", estimated_vram_mb: 6144}
  - {provider: ollama, model_id: "gemma3:12b", estimated_vram_mb: 8192}
`

const gib = 1 << 30

func status(t *testing.T, s *stack) types.StatusResponse {
	t.Helper()
	resp, body := s.call(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var st types.StatusResponse
	require.NoError(t, json.Unmarshal(body, &st))
	return st
}

func modelKeys(st types.StatusResponse) []string {
	out := make([]string, 0, len(st.Models))
	for _, m := range st.Models {
		out = append(out, m.ModelKey)
	}
	return out
}

func TestStartupAdoptsResidentModels(t *testing.T) {
	s := newStack(t, registryYAML, map[string]int64{"mistral:7b": 3 * gib})

	require.Eventually(t, func() bool {
		return status(t, s).LoadedCount == 1
	}, 5*time.Second, 20*time.Millisecond)

	st := status(t, s)
	require.Len(t, st.Models, 1)
	assert.Equal(t, "ollama/mistral:7b", st.Models[0].ModelKey)
	assert.Equal(t, 3072, st.Models[0].VRAMMB)
	assert.Equal(t, 3072, st.CommittedMB)
	assert.True(t, st.Metrics.IsMock)
}

func TestLoadEvictUnloadRoundTrip(t *testing.T) {
	s := newStack(t, registryYAML, map[string]int64{"mistral:7b": 3 * gib})
	require.Eventually(t, func() bool { return status(t, s).LoadedCount == 1 }, 5*time.Second, 20*time.Millisecond)

	resp, body := s.call(t, http.MethodPost, "/models/load?wait=1", `{"provider":"ollama","model_id":"qwen3:8b"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// 3072 + 6144 committed leaves 5120 of a 14336 budget; gemma needs 8192.
	resp, body = s.call(t, http.MethodPost, "/models/load?wait=1", `{"provider":"ollama","model_id":"gemma3:12b"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out types.RequestOutcome
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "succeeded", out.Status)
	assert.Equal(t, []string{"ollama/mistral:7b"}, out.Evicted)

	st := status(t, s)
	assert.ElementsMatch(t, []string{"ollama/qwen3:8b", "ollama/gemma3:12b"}, modelKeys(st))
	assert.Equal(t, 14336, st.CommittedMB)
	assert.Equal(t, 0, st.FreeBudgetMB)

	resp, body = s.call(t, http.MethodPost, "/models/unload/ollama/qwen3:8b", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 8192, status(t, s).CommittedMB)

	assert.Equal(t, []generateCall{
		{Model: "qwen3:8b", KeepAlive: -1},
		{Model: "mistral:7b", KeepAlive: 0},
		{Model: "gemma3:12b", KeepAlive: -1},
		{Model: "qwen3:8b", KeepAlive: 0},
	}, s.ollama.generateCalls())

	require.Eventually(t, func() bool {
		return s.nats.count("mesh.gpu.model.unloaded.v1") == 2 && s.nats.count("mesh.gpu.model.loaded.v1") == 2
	}, 5*time.Second, 20*time.Millisecond)
	var reasons []string
	for _, raw := range s.nats.all("mesh.gpu.model.unloaded.v1") {
		var ev types.ModelEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		reasons = append(reasons, ev.ModelKey+":"+ev.Reason)
	}
	assert.Equal(t, []string{"ollama/mistral:7b:evicted", "ollama/qwen3:8b:api"}, reasons)
}

func TestOversizedLoadRejected(t *testing.T) {
	s := newStack(t, registryYAML+"  - {provider: ollama, model_id: huge, estimated_vram_mb: 20000}\n", nil)

	resp, body := s.call(t, http.MethodPost, "/models/load?wait=1", `{"provider":"ollama","model_id":"huge"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))
	assert.Empty(t, s.ollama.generateCalls())
	require.Eventually(t, func() bool { return s.nats.count("mesh.gpu.load.rejected.v1") == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestRegistryReloadChangesEstimates(t *testing.T) {
	s := newStack(t, registryYAML, nil)

	writeFile(t, dirOf(s.regPth), "models.yaml", "models:\n  - {provider: ollama, model_id: \"qwen3:8b\", estimated_vram_mb: 1000}\n")
	resp, body := s.call(t, http.MethodPost, "/registry/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = s.call(t, http.MethodPost, "/models/load?wait=1", `{"provider":"ollama","model_id":"qwen3:8b"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 1000, status(t, s).CommittedMB)
}
