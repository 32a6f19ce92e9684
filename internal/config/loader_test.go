package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nregistry_path: /etc/vramd/models.yaml\ntotal_vram_mb: 24576\nsystem_reserve_mb: 1024\nollama_url: http://gpu:11434\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.RegistryPath != "/etc/vramd/models.yaml" || cfg.TotalVRAMMB != 24576 || cfg.SystemReserveMB == nil || *cfg.SystemReserveMB != 1024 || cfg.OllamaURL != "http://gpu:11434" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadZeroReserveIsExplicit(t *testing.T) {
	d := t.TempDir()
	cfg, err := Load(writeTempFile(t, d, "zero.yaml", "system_reserve_mb: 0\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SystemReserveMB == nil || *cfg.SystemReserveMB != 0 {
		t.Fatalf("explicit zero reserve lost: %v", cfg.SystemReserveMB)
	}
	cfg, err = Load(writeTempFile(t, d, "unset.yaml", "addr: :9999\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SystemReserveMB != nil {
		t.Fatalf("unset reserve should defer to the registry, got %d", *cfg.SystemReserveMB)
	}
	neg := -1
	cfg = Defaults()
	cfg.SystemReserveMB = &neg
	if err := cfg.Validate(); err == nil {
		t.Fatalf("negative reserve should fail validation")
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","warning_percent":70,"critical_percent":90,"cors_allowed_origins":["http://a"]}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.WarningPercent != 70 || cfg.CriticalPercent != 90 || len(cfg.CORSAllowedOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nidle_timeout_seconds=60\nmax_queue_depth=8\nnats_url=\"nats://localhost:4222\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.IdleTimeoutSeconds != 60 || cfg.MaxQueueDepth != 8 || cfg.NATSURL != "nats://localhost:4222" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	p = writeTempFile(t, d, "bad.yaml", "addr: [unterminated")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":8099" || cfg.MaxQueueDepth != 64 || cfg.SubjectPrefix != "mesh.gpu" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.OpTimeout() != 120*time.Second || cfg.OptimizeInterval() != time.Minute {
		t.Fatalf("unexpected durations: %v %v", cfg.OpTimeout(), cfg.OptimizeInterval())
	}
}

func TestResolvePrecedence(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9000\nmax_queue_depth: 10\nlog_level: debug\n")
	t.Setenv("VRAMD_ADDR", ":9100")
	t.Setenv("VRAMD_CORS_ALLOWED_ORIGINS", "http://a,http://b")

	cfg, err := Resolve(p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("env should override file, got %q", cfg.Addr)
	}
	if cfg.MaxQueueDepth != 10 || cfg.LogLevel != "debug" {
		t.Fatalf("file should override defaults: %+v", cfg)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Fatalf("unset fields keep defaults, got %q", cfg.OllamaURL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestResolveRejectsInvalid(t *testing.T) {
	t.Setenv("VRAMD_WARNING_PERCENT", "96")
	t.Setenv("VRAMD_CRITICAL_PERCENT", "90")
	if _, err := Resolve(""); err == nil {
		t.Fatalf("expected warning above critical to be rejected")
	}
}

func TestResolveBadEnv(t *testing.T) {
	t.Setenv("VRAMD_MAX_QUEUE_DEPTH", "lots")
	if _, err := Resolve(""); err == nil {
		t.Fatalf("expected env parse error")
	}
}

func TestDiscoverUsesFirstExisting(t *testing.T) {
	d := t.TempDir()
	toml := writeTempFile(t, d, "vramd.toml", "addr = \":9000\"\n")
	orig := SearchPaths
	t.Cleanup(func() { SearchPaths = orig })

	SearchPaths = []string{filepath.Join(d, "vramd.yaml"), toml}
	if got := Discover(); got != toml {
		t.Fatalf("expected %s, got %q", toml, got)
	}
	SearchPaths = []string{filepath.Join(d, "nope.yaml")}
	if got := Discover(); got != "" {
		t.Fatalf("expected no config, got %q", got)
	}
}
