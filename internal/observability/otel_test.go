package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNormalizeEndpoint(t *testing.T) {
	ep, insecure := normalizeEndpoint("https://otel.example:4318")
	assert.Equal(t, "otel.example:4318", ep)
	assert.False(t, insecure)

	ep, insecure = normalizeEndpoint("collector:4318")
	assert.Equal(t, "collector:4318", ep)
	assert.True(t, insecure)
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("authorization=Bearer x, junk ,x-team=gpu,empty=")
	assert.Equal(t, map[string]string{"authorization": "Bearer x", "x-team": "gpu"}, got)
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, zerolog.Nop())
	require.NoError(t, err)
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(context.Background()))
}
