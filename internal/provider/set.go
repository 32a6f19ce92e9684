package provider

import (
	"sort"
	"time"
)

// Set maps provider names to adapters.
type Set map[string]Adapter

// NewSet indexes adapters by Name. Later adapters replace earlier ones.
func NewSet(adapters ...Adapter) Set {
	s := make(Set, len(adapters))
	for _, a := range adapters {
		if a != nil {
			s[a.Name()] = a
		}
	}
	return s
}

// Endpoints holds backend base URLs. Empty URLs disable the backend.
type Endpoints struct {
	Ollama string
	VLLM   string
	TTS    string
}

// FromEndpoints builds the stock adapters for every configured endpoint.
func FromEndpoints(ep Endpoints, timeout time.Duration) Set {
	var as []Adapter
	if ep.Ollama != "" {
		as = append(as, NewOllama(ep.Ollama, timeout))
	}
	if ep.VLLM != "" {
		as = append(as, NewVLLM(ep.VLLM, timeout))
	}
	if ep.TTS != "" {
		as = append(as, NewTTS(ep.TTS, timeout))
	}
	return NewSet(as...)
}

func (s Set) Get(name string) (Adapter, bool) {
	a, ok := s[name]
	return a, ok
}

// Names returns provider names in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
