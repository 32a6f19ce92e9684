package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultModel is the model id that matches whatever a single-model backend
// is serving.
const DefaultModel = "default"

// VLLM fronts a vLLM OpenAI-compatible server. The server is launched with a
// fixed model, so "load" only confirms it is being served and the weights
// stay resident until the process exits.
type VLLM struct {
	client *resty.Client
}

func NewVLLM(baseURL string, timeout time.Duration) *VLLM {
	return &VLLM{client: newClient(baseURL, timeout)}
}

type openAIModels struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (v *VLLM) Name() string         { return "vllm" }
func (v *VLLM) SupportsUnload() bool { return false }

func (v *VLLM) Load(ctx context.Context, modelID string) error {
	served, err := v.models(ctx)
	if err != nil {
		return err
	}
	if len(served) == 0 {
		return fmt.Errorf("vllm load %s: server reports no models", modelID)
	}
	if modelID == DefaultModel {
		return nil
	}
	for _, id := range served {
		if id == modelID {
			return nil
		}
	}
	return fmt.Errorf("vllm load %s: not served (serving %v)", modelID, served)
}

func (v *VLLM) Unload(context.Context, string) error { return ErrUnloadUnsupported }

func (v *VLLM) ListLoaded(ctx context.Context) ([]Loaded, error) {
	served, err := v.models(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Loaded, 0, len(served))
	for _, id := range served {
		out = append(out, Loaded{ModelID: id})
	}
	return out, nil
}

// CanonicalID maps DefaultModel to the first served id. Other ids pass
// through unchanged.
func (v *VLLM) CanonicalID(ctx context.Context, modelID string) (string, error) {
	if modelID != DefaultModel {
		return modelID, nil
	}
	served, err := v.models(ctx)
	if err != nil {
		return "", err
	}
	if len(served) == 0 {
		return "", fmt.Errorf("vllm resolve %s: server reports no models", modelID)
	}
	return served[0], nil
}

func (v *VLLM) Ping(ctx context.Context) error {
	_, err := v.models(ctx)
	return err
}

func (v *VLLM) models(ctx context.Context) ([]string, error) {
	var body openAIModels
	resp, err := v.client.R().SetContext(ctx).SetResult(&body).Get("/v1/models")
	if err != nil {
		return nil, fmt.Errorf("vllm models: %w", err)
	}
	if resp.IsError() {
		return nil, statusError(v.Name(), "models", resp)
	}
	ids := make([]string, 0, len(body.Data))
	for _, d := range body.Data {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
