package types

import (
	"fmt"
	"strings"
)

// ModelKey identifies a loadable unit: one model served by one provider.
// Two quantizations of the same model are two keys.
type ModelKey struct {
	// Provider backend name.
	// example: ollama
	Provider string `json:"provider" yaml:"provider" example:"ollama"`
	// Model identifier as understood by the provider.
	// example: qwen3:8b
	ModelID string `json:"model_id" yaml:"model_id" example:"qwen3:8b"`
}

// String renders the key as provider/model_id.
func (k ModelKey) String() string { return k.Provider + "/" + k.ModelID }

// ParseModelKey splits "provider/model_id" at the first slash. Model ids may
// themselves contain slashes (e.g. HuggingFace repos).
func ParseModelKey(s string) (ModelKey, error) {
	provider, id, ok := strings.Cut(s, "/")
	if !ok || provider == "" || id == "" {
		return ModelKey{}, fmt.Errorf("invalid model key %q: want provider/model_id", s)
	}
	return ModelKey{Provider: provider, ModelID: id}, nil
}

// ModelDefinition is a registry entry. Immutable once loaded.
type ModelDefinition struct {
	Key ModelKey `json:"key"`
	// Estimated VRAM cost in MB.
	// example: 6144
	EstimatedVRAMMB int `json:"estimated_vram_mb" example:"6144"`
	// Default admission priority (0-10, higher first).
	// example: 5
	DefaultPriority int `json:"default_priority" example:"5"`
	// Per-model idle timeout override in seconds; 0 uses the global value.
	IdleTimeoutSeconds int    `json:"idle_timeout_seconds,omitempty"`
	Description        string `json:"description,omitempty"`
	// example: Q4_K_M
	Quantization  string `json:"quantization,omitempty" example:"Q4_K_M"`
	ContextLength int    `json:"context_length,omitempty"`
}

// GpuMetrics is a best-effort telemetry snapshot of a single device.
type GpuMetrics struct {
	// example: NVIDIA GeForce RTX 4080
	Device string `json:"device,omitempty" example:"NVIDIA GeForce RTX 4080"`
	// example: 16384
	TotalVRAMMB int `json:"total_vram_mb" example:"16384"`
	// example: 8192
	UsedVRAMMB int `json:"used_vram_mb" example:"8192"`
	// example: 8192
	FreeVRAMMB int `json:"free_vram_mb" example:"8192"`
	// example: 37.5
	UtilizationPercent float64 `json:"utilization_percent" example:"37.5"`
	// example: 61
	TemperatureC float64 `json:"temperature_c" example:"61"`
	// True when no GPU driver was reachable and values are synthesized.
	IsMock bool `json:"is_mock"`
	// Unix seconds of collection.
	CollectedAt int64 `json:"collected_at_unix"`
}

// VRAMUsagePercent returns used/total as a percentage; 0 when total is unknown.
func (g GpuMetrics) VRAMUsagePercent() float64 {
	if g.TotalVRAMMB <= 0 {
		return 0
	}
	return float64(g.UsedVRAMMB) / float64(g.TotalVRAMMB) * 100
}

// GpuProcess attributes device memory to a process.
type GpuProcess struct {
	PID    int    `json:"pid"`
	Name   string `json:"name"`
	UsedMB int    `json:"used_mb"`
}
