package registry

import (
	"sort"
	"time"

	"vramd/pkg/types"
)

// Priority bounds shared by the registry and the admission queue.
const (
	MinPriority = 0
	MaxPriority = 10
)

// ProviderDefaults are used for models the registry does not describe and to
// repair invalid entries.
type ProviderDefaults struct {
	VRAMMB   int `yaml:"default_vram_mb" json:"default_vram_mb"`
	Priority int `yaml:"default_priority" json:"default_priority"`
}

var builtinProviders = map[string]ProviderDefaults{
	"ollama": {VRAMMB: 4096, Priority: 5},
	"vllm":   {VRAMMB: 8192, Priority: 7},
	"tts":    {VRAMMB: 2048, Priority: 5},
}

var fallbackProvider = ProviderDefaults{VRAMMB: 4096, Priority: 5}

var builtinThresholds = types.Thresholds{
	WarningPercent:     80,
	CriticalPercent:    95,
	IdleTimeoutSeconds: 300,
	SystemReserveMB:    2048,
}

// Registry is the immutable catalog of known models and global thresholds.
// A new Registry is built on every (re)load; callers swap pointers.
type Registry struct {
	thresholds types.Thresholds
	providers  map[string]ProviderDefaults
	defs       map[types.ModelKey]types.ModelDefinition
	order      []types.ModelKey
}

// Defaults returns the built-in registry: no models, built-in thresholds and
// provider defaults.
func Defaults() *Registry {
	r := &Registry{
		thresholds: builtinThresholds,
		providers:  make(map[string]ProviderDefaults, len(builtinProviders)),
		defs:       make(map[types.ModelKey]types.ModelDefinition),
	}
	for k, v := range builtinProviders {
		r.providers[k] = v
	}
	return r
}

// New builds a registry from already-validated definitions. Intended for
// tests and programmatic setups.
func New(th types.Thresholds, defs ...types.ModelDefinition) *Registry {
	r := Defaults()
	if th != (types.Thresholds{}) {
		r.thresholds = th
	}
	for _, d := range defs {
		r.put(d)
	}
	return r
}

func (r *Registry) put(d types.ModelDefinition) (replaced bool) {
	if _, ok := r.defs[d.Key]; ok {
		replaced = true
	} else {
		r.order = append(r.order, d.Key)
	}
	r.defs[d.Key] = d
	return replaced
}

// Lookup returns the definition for key.
func (r *Registry) Lookup(key types.ModelKey) (types.ModelDefinition, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// Definitions returns all definitions in file order.
func (r *Registry) Definitions() []types.ModelDefinition {
	out := make([]types.ModelDefinition, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.defs[k])
	}
	return out
}

// Thresholds returns the global scheduling limits.
func (r *Registry) Thresholds() types.Thresholds { return r.thresholds }

// ProviderDefaults returns the defaults for provider, falling back to the
// generic defaults for providers the registry has never heard of.
func (r *Registry) ProviderDefaults(provider string) ProviderDefaults {
	if d, ok := r.providers[provider]; ok {
		return d
	}
	return fallbackProvider
}

// Providers lists provider names with configured defaults, sorted.
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EstimateMB returns the VRAM needed to load key: the registry estimate, or
// the provider default when key is unknown.
func (r *Registry) EstimateMB(key types.ModelKey) int {
	if d, ok := r.defs[key]; ok {
		return d.EstimatedVRAMMB
	}
	return r.ProviderDefaults(key.Provider).VRAMMB
}

// DefaultPriority returns the admission priority used when a request omits one.
func (r *Registry) DefaultPriority(key types.ModelKey) int {
	if d, ok := r.defs[key]; ok {
		return d.DefaultPriority
	}
	return r.ProviderDefaults(key.Provider).Priority
}

// IdleTimeout returns the idle timeout for key, honoring per-model overrides.
func (r *Registry) IdleTimeout(key types.ModelKey) time.Duration {
	if d, ok := r.defs[key]; ok && d.IdleTimeoutSeconds > 0 {
		return time.Duration(d.IdleTimeoutSeconds) * time.Second
	}
	return time.Duration(r.thresholds.IdleTimeoutSeconds) * time.Second
}
