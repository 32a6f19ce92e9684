package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vramd/pkg/types"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, splitCSV(c.in), "input %q", c.in)
	}
}

func sampleStatus() types.StatusResponse {
	return types.StatusResponse{
		Metrics:         types.GpuMetrics{Device: "mock-gpu", TotalVRAMMB: 16384, UsedVRAMMB: 6144, IsMock: true},
		BudgetMB:        14336,
		CommittedMB:     6144,
		SystemReserveMB: 2048,
		FreeBudgetMB:    8192,
		LoadedCount:     1,
		ActiveCount:     1,
		Models: []types.LoadedModelStatus{{
			ModelKey:       "ollama/qwen3:8b",
			State:          "loaded",
			VRAMMB:         6144,
			IdleSeconds:    42,
			SupportsUnload: true,
			Sessions:       []string{"s1", "s2"},
		}},
	}
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, sampleStatus())
	out := buf.String()
	for _, want := range []string{"mock-gpu (mock telemetry)", "committed 6144 MB", "ollama/qwen3:8b", "42s ago", "s1,s2", "VRAM MB"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderStatusEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, types.StatusResponse{})
	assert.Contains(t, buf.String(), "no models loaded")
}

func TestStatusCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleStatus())
	}))
	defer srv.Close()

	cmd := newStatusCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--server", srv.URL, "--json"})
	require.NoError(t, cmd.Execute())

	var got types.StatusResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 6144, got.CommittedMB)
	require.Len(t, got.Models, 1)
	assert.Equal(t, "ollama/qwen3:8b", got.Models[0].ModelKey)
}

func TestStatusCommandServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"manager not running","code":503}`))
	}))
	defer srv.Close()

	_, err := fetchStatus(srv.URL, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manager not running")
}

func TestRegistryValidate(t *testing.T) {
	p := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
models:
  - {provider: ollama, model_id: "qwen3:8b", estimated_vram_mb: 6144}
  - {provider: ollama, model_id: "noest"}
`), 0o644))

	var out bytes.Buffer
	require.NoError(t, validateRegistry(&out, p))
	s := out.String()
	assert.Contains(t, s, "2 model(s)")
	assert.Contains(t, s, "warning: ollama/noest")
	assert.Contains(t, s, "qwen3:8b")
}

func TestRegistryValidateDegraded(t *testing.T) {
	p := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(p, []byte("models: [broken: yes: no"), 0o644))

	cmd := newRegistryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"validate", p})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errRegistryDegraded))
	assert.True(t, strings.HasPrefix(out.String(), "DEGRADED:"))
}
