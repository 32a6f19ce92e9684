package manager

import (
	"sort"

	"vramd/pkg/types"
)

// Touch marks a loaded model as used now. Returns false when the model is not
// loaded.
func (m *Manager) Touch(key types.ModelKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	lm, ok := m.loaded.Get(key)
	if !ok || lm.State != StateLoaded {
		return false
	}
	lm.LastUsed = m.now()
	return true
}

// ReleaseSession drops every reference held by session id and returns how
// many models it referenced.
func (m *Manager) ReleaseSession(id string) int {
	m.mu.Lock()
	keys := m.sessions[id]
	delete(m.sessions, id)
	for k := range keys {
		if lm, ok := m.loaded.Get(k); ok {
			delete(lm.Sessions, id)
		}
	}
	m.mu.Unlock()
	if len(keys) > 0 {
		m.log.Info().Str("event", "session_released").Str("session", id).Int("models", len(keys)).Msg("session released")
	}
	return len(keys)
}

// Sessions returns session id -> referenced model keys.
func (m *Manager) Sessions() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string, len(m.sessions))
	for id, keys := range m.sessions {
		list := make([]string, 0, len(keys))
		for k := range keys {
			list = append(list, k.String())
		}
		sort.Strings(list)
		out[id] = list
	}
	return out
}

func (m *Manager) attachLocked(lm *LoadedModel, session string) {
	if session == "" {
		return
	}
	if lm.Sessions == nil {
		lm.Sessions = map[string]struct{}{}
	}
	lm.Sessions[session] = struct{}{}
	refs, ok := m.sessions[session]
	if !ok {
		refs = map[types.ModelKey]struct{}{}
		m.sessions[session] = refs
	}
	refs[lm.Key] = struct{}{}
}

// detachAllLocked removes key from every session, deleting sessions left
// empty, and returns the affected session ids.
func (m *Manager) detachAllLocked(key types.ModelKey) []string {
	var released []string
	for id, refs := range m.sessions {
		if _, ok := refs[key]; !ok {
			continue
		}
		delete(refs, key)
		released = append(released, id)
		if len(refs) == 0 {
			delete(m.sessions, id)
		}
	}
	sort.Strings(released)
	return released
}
