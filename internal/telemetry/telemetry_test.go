package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/macropower/conductor/internal/telemetry"
)

func TestNewProvider(t *testing.T) {
	t.Parallel()

	exp := tracetest.NewInMemoryExporter()
	tp := telemetry.NewProvider(exp, "v1.2.3")

	_, span := tp.Tracer("test").Start(t.Context(), "conduct")
	span.End()

	require.NoError(t, tp.ForceFlush(t.Context()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "conduct", spans[0].Name)

	attrs := spans[0].Resource.Attributes()
	assert.Contains(t, attrs, attribute.String("service.name", telemetry.ServiceName))
	assert.Contains(t, attrs, attribute.String("service.version", "v1.2.3"))

	require.NoError(t, tp.Shutdown(t.Context()))
}

func TestStart_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := telemetry.Start(t.Context(), "", "dev")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
