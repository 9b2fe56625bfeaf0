package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lifeembedding/lifeembedding/config"
)

func TestInitTracerDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	before := otel.GetTracerProvider()

	shutdown, err := InitTracer(context.Background(), &cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestInitTracerEnabled(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	cfg := config.DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = "localhost:4318"
	cfg.Tracing.Insecure = true

	shutdown, err := InitTracer(context.Background(), &cfg)
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
	assert.NoError(t, shutdown(context.Background()))
}
