package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"vramd/internal/common/fsutil"
	"vramd/pkg/types"
)

// Result is the outcome of loading a registry file. Loading never fails:
// an unusable file yields the built-in registry with Degraded set.
type Result struct {
	Registry *Registry
	Path     string
	Degraded bool
	Reason   string
	// Entry-level repairs applied while loading.
	Warnings []string
}

type fileThresholds struct {
	WarningPercent     float64 `yaml:"warning_percent"`
	CriticalPercent    float64 `yaml:"critical_percent"`
	IdleTimeoutSeconds int     `yaml:"idle_timeout_seconds"`
	SystemReserveMB    *int    `yaml:"system_reserve_mb"`
	TotalVRAMMB        int     `yaml:"total_vram_mb"`
}

type fileModel struct {
	Provider           string `yaml:"provider"`
	ModelID            string `yaml:"model_id"`
	EstimatedVRAMMB    *int   `yaml:"estimated_vram_mb"`
	DefaultPriority    *int   `yaml:"default_priority"`
	IdleTimeoutSeconds int    `yaml:"idle_timeout_seconds"`
	Description        string `yaml:"description"`
	Quantization       string `yaml:"quantization"`
	ContextLength      int    `yaml:"context_length"`
}

type file struct {
	Thresholds fileThresholds              `yaml:"thresholds"`
	Providers  map[string]ProviderDefaults `yaml:"providers"`
	Models     []fileModel                 `yaml:"models"`
}

// Load reads and validates the registry at path.
func Load(path string) Result {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return degraded(path, err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return degraded(p, fmt.Errorf("read registry: %w", err))
	}
	res := Parse(b)
	res.Path = p
	return res
}

// Parse validates raw registry YAML.
func Parse(b []byte) Result {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return degraded("", fmt.Errorf("parse registry: %w", err))
	}
	r := Defaults()
	var warns []string
	warnf := func(format string, a ...any) { warns = append(warns, fmt.Sprintf(format, a...)) }

	for name, pd := range f.Providers {
		name = strings.TrimSpace(name)
		base := r.ProviderDefaults(name)
		if pd.VRAMMB <= 0 {
			if pd.VRAMMB < 0 {
				warnf("provider %s: default_vram_mb %d is negative, using %d", name, pd.VRAMMB, base.VRAMMB)
			}
			pd.VRAMMB = base.VRAMMB
		}
		if pd.Priority < MinPriority || pd.Priority > MaxPriority {
			warnf("provider %s: default_priority %d out of range, using %d", name, pd.Priority, base.Priority)
			pd.Priority = base.Priority
		}
		r.providers[name] = pd
	}

	r.thresholds = validateThresholds(f.Thresholds, warnf)

	for i, m := range f.Models {
		key := types.ModelKey{Provider: strings.TrimSpace(m.Provider), ModelID: strings.TrimSpace(m.ModelID)}
		if key.Provider == "" || key.ModelID == "" {
			warnf("models[%d]: provider and model_id are required, entry skipped", i)
			continue
		}
		pd := r.ProviderDefaults(key.Provider)
		def := types.ModelDefinition{
			Key:                key,
			EstimatedVRAMMB:    pd.VRAMMB,
			DefaultPriority:    pd.Priority,
			Description:        m.Description,
			Quantization:       m.Quantization,
			ContextLength:      m.ContextLength,
			IdleTimeoutSeconds: m.IdleTimeoutSeconds,
		}
		switch {
		case m.EstimatedVRAMMB == nil:
			warnf("%s: estimated_vram_mb missing, using provider default %d", key, pd.VRAMMB)
		case *m.EstimatedVRAMMB < 0:
			warnf("%s: estimated_vram_mb %d is negative, using provider default %d", key, *m.EstimatedVRAMMB, pd.VRAMMB)
		default:
			def.EstimatedVRAMMB = *m.EstimatedVRAMMB
		}
		if m.DefaultPriority != nil {
			if p := *m.DefaultPriority; p < MinPriority || p > MaxPriority {
				warnf("%s: default_priority %d out of range, using %d", key, p, pd.Priority)
			} else {
				def.DefaultPriority = p
			}
		}
		if def.IdleTimeoutSeconds < 0 {
			warnf("%s: idle_timeout_seconds %d is negative, using global timeout", key, def.IdleTimeoutSeconds)
			def.IdleTimeoutSeconds = 0
		}
		if def.ContextLength < 0 {
			def.ContextLength = 0
		}
		if r.put(def) {
			warnf("%s: duplicate entry, last definition wins", key)
		}
	}
	return Result{Registry: r, Warnings: warns}
}

func validateThresholds(ft fileThresholds, warnf func(string, ...any)) types.Thresholds {
	th := builtinThresholds
	if ft.WarningPercent != 0 {
		if ft.WarningPercent < 0 || ft.WarningPercent > 100 {
			warnf("thresholds: warning_percent %.1f out of range, using %.1f", ft.WarningPercent, th.WarningPercent)
		} else {
			th.WarningPercent = ft.WarningPercent
		}
	}
	if ft.CriticalPercent != 0 {
		if ft.CriticalPercent < 0 || ft.CriticalPercent > 100 {
			warnf("thresholds: critical_percent %.1f out of range, using %.1f", ft.CriticalPercent, th.CriticalPercent)
		} else {
			th.CriticalPercent = ft.CriticalPercent
		}
	}
	if th.WarningPercent > th.CriticalPercent {
		warnf("thresholds: warning_percent %.1f above critical_percent %.1f, clamping", th.WarningPercent, th.CriticalPercent)
		th.WarningPercent = th.CriticalPercent
	}
	if ft.IdleTimeoutSeconds != 0 {
		if ft.IdleTimeoutSeconds < 0 {
			warnf("thresholds: idle_timeout_seconds %d is negative, using %d", ft.IdleTimeoutSeconds, th.IdleTimeoutSeconds)
		} else {
			th.IdleTimeoutSeconds = ft.IdleTimeoutSeconds
		}
	}
	if ft.SystemReserveMB != nil {
		if *ft.SystemReserveMB < 0 {
			warnf("thresholds: system_reserve_mb %d is negative, using %d", *ft.SystemReserveMB, th.SystemReserveMB)
		} else {
			th.SystemReserveMB = *ft.SystemReserveMB
		}
	}
	if ft.TotalVRAMMB < 0 {
		warnf("thresholds: total_vram_mb %d is negative, ignoring", ft.TotalVRAMMB)
	} else {
		th.TotalVRAMMB = ft.TotalVRAMMB
	}
	return th
}

func degraded(path string, err error) Result {
	return Result{Registry: Defaults(), Path: path, Degraded: true, Reason: err.Error()}
}
