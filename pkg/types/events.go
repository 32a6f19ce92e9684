package types

// ModelEvent is the payload of model lifecycle events
// (mesh.gpu.model.loaded.v1, mesh.gpu.model.unloaded.v1, ...).
type ModelEvent struct {
	Event     string         `json:"event"`
	ModelKey  string         `json:"model_key"`
	Provider  string         `json:"provider"`
	ModelID   string         `json:"model_id"`
	VRAMMB    int            `json:"vram_mb,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp int64          `json:"timestamp_unix"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// VRAMWarningEvent is published on mesh.gpu.vram.warning.v1.
type VRAMWarningEvent struct {
	// warning or critical
	Level            string  `json:"level"`
	VRAMUsagePercent float64 `json:"vram_usage_percent"`
	ThresholdPercent float64 `json:"threshold_percent"`
	UsedVRAMMB       int     `json:"used_vram_mb"`
	TotalVRAMMB      int     `json:"total_vram_mb"`
	IsMock           bool    `json:"is_mock"`
	Timestamp        int64   `json:"timestamp_unix"`
}
