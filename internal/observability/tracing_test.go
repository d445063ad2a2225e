package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-ai/mentora/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	cfg := config.OtelConfig{
		Endpoint:    "",
		Environment: "test",
		ServiceName: "mentora-test",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg, testLogger())

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
}

func TestSetup_CustomEndpoint(t *testing.T) {
	cfg := config.OtelConfig{
		Endpoint:    "collector:4318",
		Environment: "staging",
		ServiceName: "mentora-staging",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg, testLogger())

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Nothing was exported, so shutdown has nothing to flush.
	assert.NoError(t, shutdown(ctx))
}

func TestSetup_CollectorUnavailable(t *testing.T) {
	// Exporter construction does not dial, so an unreachable collector
	// must not fail setup; spans fail to export later instead.
	cfg := config.OtelConfig{
		Endpoint:    "localhost:1",
		Environment: "test",
		ServiceName: "mentora-test",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg, testLogger())

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
}

func TestSetup_NilLogger(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Setup(ctx, config.OtelConfig{}, nil)

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
}
