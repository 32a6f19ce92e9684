package types

// LoadRequest is the body of POST /models/load.
type LoadRequest struct {
	// Model identifier as understood by the provider.
	// example: qwen3:8b
	ModelID string `json:"model_id" example:"qwen3:8b"`
	// Provider backend name.
	// example: ollama
	Provider string `json:"provider" example:"ollama"`
	// Admission priority 0-10 (higher first). Omitted uses the registry default.
	// example: 5
	Priority *int `json:"priority,omitempty" example:"5"`
	// Optional session that protects the model from idle eviction.
	// example: s1
	SessionID string `json:"session_id,omitempty" example:"s1"`
}

// LoadResponse is returned by POST /models/load.
type LoadResponse struct {
	// example: 4f0c2a7e-3b1f-4f0e-9a55-3f4a2b1c9d10
	RequestID string `json:"request_id" example:"4f0c2a7e-3b1f-4f0e-9a55-3f4a2b1c9d10"`
	// example: ollama/qwen3:8b
	ModelKey      string `json:"model_key" example:"ollama/qwen3:8b"`
	AlreadyLoaded bool   `json:"already_loaded"`
	// example: load request queued
	Message string `json:"message" example:"load request queued"`
}

// UnloadResponse is returned by POST /models/unload/{provider}/{model_id}.
type UnloadResponse struct {
	Success bool `json:"success"`
	// example: ollama/qwen3:8b
	ModelKey string `json:"model_key" example:"ollama/qwen3:8b"`
	Message  string `json:"message"`
}

// OptimizeResponse is returned by POST /optimize.
type OptimizeResponse struct {
	Unloaded []string `json:"unloaded"`
	Errors   []string `json:"errors"`
	Message  string   `json:"message"`
}

// TouchResponse is returned by POST /models/touch/{provider}/{model_id}.
type TouchResponse struct {
	Success  bool   `json:"success"`
	ModelKey string `json:"model_key"`
	Message  string `json:"message"`
}

// LoadedModelStatus summarizes one entry of the loaded-model table.
type LoadedModelStatus struct {
	// example: ollama/qwen3:8b
	ModelKey string `json:"model_key" example:"ollama/qwen3:8b"`
	Provider string `json:"provider"`
	ModelID  string `json:"model_id"`
	// Lifecycle state (loading, loaded, unloading, error).
	// example: loaded
	State string `json:"state" example:"loaded"`
	// example: 6144
	VRAMMB             int      `json:"vram_mb" example:"6144"`
	LoadedAt           int64    `json:"loaded_at_unix"`
	LastUsed           int64    `json:"last_used_unix"`
	IdleTimeoutSeconds int      `json:"idle_timeout_seconds"`
	IdleSeconds        int64    `json:"idle_seconds"`
	IsIdle             bool     `json:"is_idle"`
	Sessions           []string `json:"sessions,omitempty"`
	SupportsUnload     bool     `json:"supports_unload"`
	ErrorMessage       string   `json:"error_message,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Metrics GpuMetrics          `json:"metrics"`
	Models  []LoadedModelStatus `json:"models"`
	// VRAM budget after the system reserve.
	// example: 14336
	BudgetMB int `json:"budget_mb" example:"14336"`
	// Sum of VRAM held by loading, loaded and unloading models.
	// example: 6144
	CommittedMB int `json:"committed_mb" example:"6144"`
	// example: 2048
	SystemReserveMB int `json:"system_reserve_mb" example:"2048"`
	// example: 8192
	FreeBudgetMB   int         `json:"free_budget_mb" example:"8192"`
	LoadedCount    int         `json:"loaded_count"`
	IdleCount      int         `json:"idle_count"`
	ActiveCount    int         `json:"active_count"`
	ErrorCount     int         `json:"error_count"`
	Queue          QueueStatus `json:"queue"`
	Degraded       bool        `json:"degraded"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	ServerTimeUnix int64       `json:"server_time_unix"`
	LoadsTotal     uint64      `json:"loads_total"`
	EvictionsTotal uint64      `json:"evictions_total"`
	LastError      string      `json:"last_error,omitempty"`
}

// MetricsSummary is returned by GET /metrics/summary.
type MetricsSummary struct {
	TotalVRAMMB        int     `json:"total_vram_mb"`
	UsedVRAMMB         int     `json:"used_vram_mb"`
	FreeVRAMMB         int     `json:"free_vram_mb"`
	VRAMUsagePercent   float64 `json:"vram_usage_percent"`
	UtilizationPercent float64 `json:"utilization_percent"`
	TemperatureC       float64 `json:"temperature_c"`
	LoadedCount        int     `json:"loaded_count"`
	IsMock             bool    `json:"is_mock"`
}

// QueueItem describes one pending coordinator operation.
type QueueItem struct {
	RequestID   string `json:"request_id"`
	Kind        string `json:"kind"`
	ModelKey    string `json:"model_key,omitempty"`
	Priority    int    `json:"priority"`
	SessionID   string `json:"session_id,omitempty"`
	SubmittedAt int64  `json:"submitted_at_unix"`
}

// QueueStatus is returned by GET /queue.
type QueueStatus struct {
	PendingCount    int         `json:"pending_count"`
	ProcessingCount int         `json:"processing_count"`
	MaxQueueDepth   int         `json:"max_queue_depth"`
	Pending         []QueueItem `json:"pending,omitempty"`
	Processing      *QueueItem  `json:"processing,omitempty"`
}

// RequestOutcome is returned by GET /queue/{request_id}.
type RequestOutcome struct {
	RequestID string `json:"request_id"`
	ModelKey  string `json:"model_key"`
	// pending, processing, succeeded, failed, cancelled
	Status        string   `json:"status"`
	AlreadyLoaded bool     `json:"already_loaded,omitempty"`
	ErrorKind     string   `json:"error_kind,omitempty"`
	Message       string   `json:"message,omitempty"`
	Evicted       []string `json:"evicted,omitempty"`
	CompletedAt   int64    `json:"completed_at_unix,omitempty"`
}

// SessionsResponse is returned by GET /sessions.
type SessionsResponse struct {
	Sessions map[string][]string `json:"sessions"`
}

// ReleaseSessionResponse is returned by DELETE /sessions/{session_id}.
type ReleaseSessionResponse struct {
	SessionID string `json:"session_id"`
	Released  int    `json:"released"`
}

// ModelListing is one row of GET /models.
type ModelListing struct {
	ModelKey        string `json:"model_key"`
	Provider        string `json:"provider"`
	ModelID         string `json:"model_id"`
	State           string `json:"state"`
	VRAMMB          int    `json:"vram_mb"`
	DefaultPriority int    `json:"default_priority"`
	InRegistry      bool   `json:"in_registry"`
	Description     string `json:"description,omitempty"`
}

// ModelsResponse wraps GET /models.
type ModelsResponse struct {
	Models []ModelListing `json:"models"`
}

// Thresholds are the registry's global scheduling limits.
type Thresholds struct {
	WarningPercent     float64 `json:"warning_percent"`
	CriticalPercent    float64 `json:"critical_percent"`
	IdleTimeoutSeconds int     `json:"idle_timeout_seconds"`
	SystemReserveMB    int     `json:"system_reserve_mb"`
	TotalVRAMMB        int     `json:"total_vram_mb,omitempty"`
}

// RegistryResponse is returned by GET /registry.
type RegistryResponse struct {
	Path       string            `json:"path,omitempty"`
	Degraded   bool              `json:"degraded"`
	Reason     string            `json:"reason,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Thresholds Thresholds        `json:"thresholds"`
	Models     []ModelDefinition `json:"models"`
}

// ProcessesResponse is returned by GET /processes.
type ProcessesResponse struct {
	IsMock    bool         `json:"is_mock"`
	Processes []GpuProcess `json:"processes"`
}

// ProviderHealth reports reachability of one backend.
type ProviderHealth struct {
	Name           string `json:"name"`
	SupportsUnload bool   `json:"supports_unload"`
	Reachable      bool   `json:"reachable"`
	Error          string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /readyz?verbose=1.
type HealthResponse struct {
	Status            string `json:"status"`
	TelemetryDegraded bool   `json:"telemetry_degraded"`
	// True while the registry file is unusable and built-in defaults apply.
	RegistryDegraded bool             `json:"registry_degraded"`
	CoordinatorAlive bool             `json:"coordinator_alive"`
	Providers        []ProviderHealth `json:"providers"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
