package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// TTS is a speech service that loads its voice model at startup. Load only
// checks the service is healthy.
type TTS struct {
	client *resty.Client
}

func NewTTS(baseURL string, timeout time.Duration) *TTS {
	return &TTS{client: newClient(baseURL, timeout)}
}

func (t *TTS) Name() string         { return "tts" }
func (t *TTS) SupportsUnload() bool { return false }

func (t *TTS) Load(ctx context.Context, modelID string) error {
	if err := t.Ping(ctx); err != nil {
		return fmt.Errorf("tts load %s: %w", modelID, err)
	}
	return nil
}

func (t *TTS) Unload(context.Context, string) error { return ErrUnloadUnsupported }

func (t *TTS) Ping(ctx context.Context) error {
	resp, err := t.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("tts health: %w", err)
	}
	if resp.IsError() {
		return statusError(t.Name(), "health", resp)
	}
	return nil
}
