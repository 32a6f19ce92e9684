// Package natspub publishes scheduler events and periodic status to NATS.
// Publishing is best-effort: a slow or absent broker never blocks the
// coordinator.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"vramd/internal/manager"
	"vramd/pkg/types"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "mesh.gpu"

const defaultBuffer = 256

// Conn is the subset of *nats.Conn used here.
type Conn interface {
	Publish(subj string, data []byte) error
}

// Connect dials url with reconnect forever. The returned conn must be
// drained by the caller.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	log = log.With().Str("component", "nats").Logger()
	nc, err := nats.Connect(url,
		nats.Name("vramd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

type message struct {
	subject string
	data    []byte
}

// Publisher queues messages on a bounded channel and sends them from Run.
// It implements manager.EventPublisher.
type Publisher struct {
	conn    Conn
	prefix  string
	log     zerolog.Logger
	ch      chan message
	dropped atomic.Uint64
}

func NewPublisher(conn Conn, prefix string, log zerolog.Logger) *Publisher {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		log:    log.With().Str("component", "natspub").Logger(),
		ch:     make(chan message, defaultBuffer),
	}
}

// Subject returns the full subject for name, e.g. mesh.gpu.model.loaded.v1.
func (p *Publisher) Subject(name string) string {
	return p.prefix + "." + name + ".v1"
}

// Dropped reports how many messages were discarded because the buffer was full.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Send encodes v as JSON and queues it on subject name. Never blocks.
func (p *Publisher) Send(name string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		p.log.Error().Err(err).Str("subject", name).Msg("encode event")
		return
	}
	select {
	case p.ch <- message{subject: p.Subject(name), data: b}:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.log.Warn().Uint64("dropped", n).Msg("event buffer full, dropping")
		}
	}
}

func (p *Publisher) Publish(ev manager.Event) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	p.Send(ev.Name, types.ModelEvent{
		Event:     ev.Name,
		ModelKey:  ev.Key.String(),
		Provider:  ev.Key.Provider,
		ModelID:   ev.Key.ModelID,
		VRAMMB:    ev.VRAMMB,
		Reason:    string(ev.Reason),
		RequestID: ev.RequestID,
		Error:     ev.Err,
		Timestamp: at.Unix(),
		Fields:    ev.Fields,
	})
}

// Run forwards queued messages to the connection until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-p.ch:
			if err := p.conn.Publish(m.subject, m.data); err != nil {
				p.log.Warn().Err(err).Str("subject", m.subject).Msg("publish failed")
			}
		}
	}
}
