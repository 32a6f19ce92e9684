package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"vramd/internal/common/fsutil"
)

// EnvPrefix prefixes every environment override, e.g. VRAMD_ADDR.
const EnvPrefix = "VRAMD_"

// SearchPaths are tried in order when no config file is named.
var SearchPaths = []string{
	"vramd.yaml",
	"vramd.yml",
	"vramd.toml",
	"vramd.json",
	"~/.config/vramd/config.yaml",
	"/etc/vramd/config.yaml",
}

// Discover returns the first existing file from SearchPaths, or "".
func Discover() string { return fsutil.FirstRegularFile(SearchPaths...) }

// Config holds runtime parameters for the service.
// Zero values mean "unspecified": Load leaves them zero, Resolve fills them
// from Defaults. Threshold fields left at zero defer to the registry file.
type Config struct {
	Addr          string `json:"addr" yaml:"addr" toml:"addr" env:"ADDR"`
	RegistryPath  string `json:"registry_path" yaml:"registry_path" toml:"registry_path" env:"REGISTRY_PATH"`
	WatchRegistry bool   `json:"watch_registry" yaml:"watch_registry" toml:"watch_registry" env:"WATCH_REGISTRY"`

	// Device size override. 0 takes the size from the registry or telemetry.
	TotalVRAMMB int `json:"total_vram_mb" yaml:"total_vram_mb" toml:"total_vram_mb" env:"TOTAL_VRAM_MB"`
	// Device size assumed while telemetry has never answered.
	FallbackVRAMMB int `json:"fallback_vram_mb" yaml:"fallback_vram_mb" toml:"fallback_vram_mb" env:"FALLBACK_VRAM_MB"`
	// nil defers to the registry; 0 is a valid reserve.
	SystemReserveMB    *int    `json:"system_reserve_mb" yaml:"system_reserve_mb" toml:"system_reserve_mb" env:"SYSTEM_RESERVE_MB"`
	WarningPercent     float64 `json:"warning_percent" yaml:"warning_percent" toml:"warning_percent" env:"WARNING_PERCENT"`
	CriticalPercent    float64 `json:"critical_percent" yaml:"critical_percent" toml:"critical_percent" env:"CRITICAL_PERCENT"`
	IdleTimeoutSeconds int     `json:"idle_timeout_seconds" yaml:"idle_timeout_seconds" toml:"idle_timeout_seconds" env:"IDLE_TIMEOUT_SECONDS"`
	EvictActive        bool    `json:"evict_active" yaml:"evict_active" toml:"evict_active" env:"EVICT_ACTIVE"`

	OptimizeIntervalSeconds  int `json:"optimize_interval_seconds" yaml:"optimize_interval_seconds" toml:"optimize_interval_seconds" env:"OPTIMIZE_INTERVAL_SECONDS"`
	TelemetryIntervalSeconds int `json:"telemetry_interval_seconds" yaml:"telemetry_interval_seconds" toml:"telemetry_interval_seconds" env:"TELEMETRY_INTERVAL_SECONDS"`
	StatusIntervalSeconds    int `json:"status_interval_seconds" yaml:"status_interval_seconds" toml:"status_interval_seconds" env:"STATUS_INTERVAL_SECONDS"`
	OpTimeoutSeconds         int `json:"op_timeout_seconds" yaml:"op_timeout_seconds" toml:"op_timeout_seconds" env:"OP_TIMEOUT_SECONDS"`
	MaxQueueDepth            int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth" env:"MAX_QUEUE_DEPTH"`

	OllamaURL string `json:"ollama_url" yaml:"ollama_url" toml:"ollama_url" env:"OLLAMA_URL"`
	VLLMURL   string `json:"vllm_url" yaml:"vllm_url" toml:"vllm_url" env:"VLLM_URL"`
	TTSURL    string `json:"tts_url" yaml:"tts_url" toml:"tts_url" env:"TTS_URL"`
	// Path to nvidia-smi; "mock" disables GPU telemetry.
	NvidiaSMI string `json:"nvidia_smi" yaml:"nvidia_smi" toml:"nvidia_smi" env:"NVIDIA_SMI"`

	NATSURL       string `json:"nats_url" yaml:"nats_url" toml:"nats_url" env:"NATS_URL"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix" toml:"subject_prefix" env:"SUBJECT_PREFIX"`
	OTLPEndpoint  string `json:"otlp_endpoint" yaml:"otlp_endpoint" toml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	OTLPHeaders   string `json:"otlp_headers" yaml:"otlp_headers" toml:"otlp_headers" env:"OTLP_HEADERS"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" env:"LOG_FORMAT"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" env:"CORS_ENABLED"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes       int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:                     ":8099",
		RegistryPath:             "models.yaml",
		WatchRegistry:            true,
		FallbackVRAMMB:           16384,
		OptimizeIntervalSeconds:  60,
		TelemetryIntervalSeconds: 5,
		StatusIntervalSeconds:    10,
		OpTimeoutSeconds:         120,
		MaxQueueDepth:            64,
		OllamaURL:                "http://localhost:11434",
		NvidiaSMI:                "nvidia-smi",
		SubjectPrefix:            "mesh.gpu",
		LogLevel:                 "info",
		LogFormat:                "console",
		MaxBodyBytes:             1 << 20,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	err := decodeFile(path, &cfg)
	return cfg, err
}

// Resolve layers defaults, the optional file at path and VRAMD_* environment
// variables, then validates the result.
func Resolve(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeFile unmarshals onto cfg, leaving fields absent from the file as they are.
func decodeFile(path string, cfg *Config) error {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	case ".json":
		err = json.Unmarshal(b, cfg)
	case ".toml":
		err = toml.Unmarshal(b, cfg)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", p, err)
	}
	return nil
}

// Validate rejects values that cannot be repaired by falling back.
func (c Config) Validate() error {
	var problems []string
	if c.TotalVRAMMB < 0 {
		problems = append(problems, "total_vram_mb must be >= 0")
	}
	if c.SystemReserveMB != nil && *c.SystemReserveMB < 0 {
		problems = append(problems, "system_reserve_mb must be >= 0")
	}
	if c.WarningPercent < 0 || c.WarningPercent > 100 {
		problems = append(problems, "warning_percent must be within 0..100")
	}
	if c.CriticalPercent < 0 || c.CriticalPercent > 100 {
		problems = append(problems, "critical_percent must be within 0..100")
	}
	if c.WarningPercent > 0 && c.CriticalPercent > 0 && c.WarningPercent > c.CriticalPercent {
		problems = append(problems, "warning_percent must not exceed critical_percent")
	}
	if c.IdleTimeoutSeconds < 0 {
		problems = append(problems, "idle_timeout_seconds must be >= 0")
	}
	if c.MaxQueueDepth < 0 {
		problems = append(problems, "max_queue_depth must be >= 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c Config) OptimizeInterval() time.Duration  { return seconds(c.OptimizeIntervalSeconds) }
func (c Config) TelemetryInterval() time.Duration { return seconds(c.TelemetryIntervalSeconds) }
func (c Config) StatusInterval() time.Duration    { return seconds(c.StatusIntervalSeconds) }
func (c Config) OpTimeout() time.Duration         { return seconds(c.OpTimeoutSeconds) }
