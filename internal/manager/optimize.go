package manager

import (
	"context"
	"errors"
	"time"

	"vramd/pkg/types"
)

// Optimize unloads every idle, unprotected, unload-capable model and waits
// for the pass to finish. A failed unload is reported and the pass continues.
func (m *Manager) Optimize(ctx context.Context) (OptimizeResult, error) {
	if !m.Running() {
		return OptimizeResult{}, ErrNotRunning
	}
	t := newTask(newRequestID(), TaskOptimize, types.ModelKey{}, operatorPriority, m.now())
	t.reason = ReasonIdle
	if err := m.queue.push(t); err != nil {
		return OptimizeResult{}, err
	}
	select {
	case <-t.done:
		return OptimizeResult{Unloaded: t.outcome.Unloaded, Errors: t.outcome.Failed}, t.outcome.Err
	case <-ctx.Done():
		return OptimizeResult{}, ctx.Err()
	}
}

// SubmitIdleSweep queues a priority-zero optimize unless one is already
// waiting. It does not wait for the result.
func (m *Manager) SubmitIdleSweep() bool {
	if !m.Running() {
		return false
	}
	t := newTask(newRequestID(), TaskOptimize, types.ModelKey{}, 0, m.now())
	t.reason = ReasonIdle
	return m.queue.pushSweep(t)
}

// RunIdleSweeper submits an idle sweep every interval until ctx is done.
func (m *Manager) RunIdleSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	tk := time.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			m.SubmitIdleSweep()
		}
	}
}

func (m *Manager) processOptimize(ctx context.Context, t *task) Outcome {
	m.mu.RLock()
	cands := m.candidatesLocked(m.now(), false, nil)
	m.mu.RUnlock()

	o := Outcome{Status: StatusSucceeded, Unloaded: []types.ModelKey{}, Failed: []types.ModelKey{}}
	for _, lm := range cands {
		err := m.unloadEntry(ctx, lm.Key, unloadOpts{reason: t.reason, requestID: t.id, requireIdle: true})
		switch {
		case err == nil:
			o.Unloaded = append(o.Unloaded, lm.Key)
			m.evictionsTotal.Add(1)
		case IsProviderUnload(err):
			o.Failed = append(o.Failed, lm.Key)
		case errors.Is(err, errNoLongerIdle), IsSessionProtected(err):
			// picked up a session or a touch while the pass was running
		default:
			o.Failed = append(o.Failed, lm.Key)
		}
	}
	if len(o.Unloaded) > 0 || len(o.Failed) > 0 {
		m.log.Info().Str("event", "optimize_done").Int("unloaded", len(o.Unloaded)).Int("failed", len(o.Failed)).Msg("idle sweep finished")
	}
	return o
}
