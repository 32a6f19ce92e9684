package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Ollama drives an Ollama server. Loading issues an empty generate with an
// infinite keep_alive; unloading repeats it with keep_alive 0.
type Ollama struct {
	client *resty.Client
}

// NewOllama returns an adapter for the server at baseURL.
func NewOllama(baseURL string, timeout time.Duration) *Ollama {
	return &Ollama{client: newClient(baseURL, timeout)}
}

type ollamaGenerate struct {
	Model     string `json:"model"`
	KeepAlive int    `json:"keep_alive"`
	Stream    bool   `json:"stream"`
}

type ollamaPS struct {
	Models []struct {
		Name     string `json:"name"`
		Model    string `json:"model"`
		SizeVRAM int64  `json:"size_vram"`
	} `json:"models"`
}

func (o *Ollama) Name() string         { return "ollama" }
func (o *Ollama) SupportsUnload() bool { return true }

func (o *Ollama) Load(ctx context.Context, modelID string) error {
	return o.generate(ctx, "load", modelID, -1)
}

func (o *Ollama) Unload(ctx context.Context, modelID string) error {
	return o.generate(ctx, "unload", modelID, 0)
}

func (o *Ollama) generate(ctx context.Context, op, modelID string, keepAlive int) error {
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(ollamaGenerate{Model: modelID, KeepAlive: keepAlive}).
		Post("/api/generate")
	if err != nil {
		return fmt.Errorf("ollama %s %s: %w", op, modelID, err)
	}
	if resp.IsError() {
		return statusError(o.Name(), op, resp)
	}
	return nil
}

// ListLoaded reports resident models from /api/ps.
func (o *Ollama) ListLoaded(ctx context.Context) ([]Loaded, error) {
	var ps ollamaPS
	resp, err := o.client.R().SetContext(ctx).SetResult(&ps).Get("/api/ps")
	if err != nil {
		return nil, fmt.Errorf("ollama ps: %w", err)
	}
	if resp.IsError() {
		return nil, statusError(o.Name(), "ps", resp)
	}
	out := make([]Loaded, 0, len(ps.Models))
	for _, m := range ps.Models {
		id := m.Model
		if id == "" {
			id = m.Name
		}
		out = append(out, Loaded{ModelID: id, VRAMMB: int(m.SizeVRAM / (1024 * 1024))})
	}
	return out, nil
}

func (o *Ollama) Ping(ctx context.Context) error {
	resp, err := o.client.R().SetContext(ctx).Get("/api/version")
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	if resp.IsError() {
		return statusError(o.Name(), "ping", resp)
	}
	return nil
}
