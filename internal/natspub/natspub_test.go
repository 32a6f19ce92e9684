package natspub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vramd/internal/manager"
	"vramd/pkg/types"
)

type recordingConn struct {
	mu   sync.Mutex
	msgs []message
}

func (c *recordingConn) Publish(subj string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, message{subject: subj, data: data})
	return nil
}

func (c *recordingConn) subjects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.subject)
	}
	return out
}

func drain(p *Publisher) []message {
	var out []message
	for {
		select {
		case m := <-p.ch:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestPublishModelEvent(t *testing.T) {
	p := NewPublisher(&recordingConn{}, "", zerolog.Nop())
	p.Publish(manager.Event{
		Name:   manager.EventModelUnloaded,
		Key:    types.ModelKey{Provider: "ollama", ModelID: "llama3.2:3b"},
		VRAMMB: 2048,
		Reason: manager.ReasonEvicted,
		At:     time.Unix(1700000000, 0),
	})
	msgs := drain(p)
	require.Len(t, msgs, 1)
	assert.Equal(t, "mesh.gpu.model.unloaded.v1", msgs[0].subject)

	var ev types.ModelEvent
	require.NoError(t, json.Unmarshal(msgs[0].data, &ev))
	assert.Equal(t, "ollama/llama3.2:3b", ev.ModelKey)
	assert.Equal(t, "evicted", ev.Reason)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
}

func TestSendDropsWhenFull(t *testing.T) {
	p := NewPublisher(&recordingConn{}, "gpu0.", zerolog.Nop())
	assert.Equal(t, "gpu0.status.v1", p.Subject("status"))
	for i := 0; i < defaultBuffer+5; i++ {
		p.Send("status", i)
	}
	assert.Equal(t, uint64(5), p.Dropped())
}

func TestRunForwards(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, "mesh.gpu", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = p.Run(ctx); close(done) }()

	p.Send("status", types.StatusResponse{})
	assert.Eventually(t, func() bool { return len(conn.subjects()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []string{"mesh.gpu.status.v1"}, conn.subjects())
}

type fixedSource struct {
	st types.StatusResponse
	th types.Thresholds
}

func (f *fixedSource) Status() types.StatusResponse { return f.st }
func (f *fixedSource) Thresholds() types.Thresholds { return f.th }

func TestBroadcasterWarningRateLimited(t *testing.T) {
	p := NewPublisher(&recordingConn{}, "", zerolog.Nop())
	src := &fixedSource{
		st: types.StatusResponse{Metrics: types.GpuMetrics{TotalVRAMMB: 16384, UsedVRAMMB: 14000}},
		th: types.Thresholds{WarningPercent: 80, CriticalPercent: 95},
	}
	b := NewBroadcaster(p, src, time.Second)
	now := time.Unix(1700000000, 0)
	b.now = func() time.Time { return now }

	b.Tick()
	msgs := drain(p)
	require.Len(t, msgs, 2)
	assert.Equal(t, "mesh.gpu.status.v1", msgs[0].subject)
	assert.Equal(t, "mesh.gpu.vram.warning.v1", msgs[1].subject)
	var w types.VRAMWarningEvent
	require.NoError(t, json.Unmarshal(msgs[1].data, &w))
	assert.Equal(t, "warning", w.Level)

	now = now.Add(30 * time.Second)
	b.Tick()
	assert.Len(t, drain(p), 1, "warning must not repeat within the interval")

	now = now.Add(31 * time.Second)
	src.st.Metrics.UsedVRAMMB = 16000
	b.Tick()
	msgs = drain(p)
	require.Len(t, msgs, 2)
	require.NoError(t, json.Unmarshal(msgs[1].data, &w))
	assert.Equal(t, "critical", w.Level)
	assert.Equal(t, 95.0, w.ThresholdPercent)
}

func TestBroadcasterMockUsesCommitted(t *testing.T) {
	p := NewPublisher(&recordingConn{}, "", zerolog.Nop())
	src := &fixedSource{
		st: types.StatusResponse{
			Metrics:     types.GpuMetrics{TotalVRAMMB: 10000, IsMock: true},
			CommittedMB: 8500,
		},
		th: types.Thresholds{WarningPercent: 80, CriticalPercent: 95},
	}
	b := NewBroadcaster(p, src, time.Second)
	b.Tick()
	msgs := drain(p)
	require.Len(t, msgs, 2)
	var w types.VRAMWarningEvent
	require.NoError(t, json.Unmarshal(msgs[1].data, &w))
	assert.True(t, w.IsMock)
	assert.Equal(t, 8500, w.UsedVRAMMB)
}
