package provider

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const maxErrorBody = 512

func newClient(baseURL string, timeout time.Duration) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	// Deadlines normally come from the caller's context; this is a backstop.
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

func statusError(provider, op string, resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return &StatusError{Provider: provider, Op: op, Code: resp.StatusCode(), Body: body}
}
