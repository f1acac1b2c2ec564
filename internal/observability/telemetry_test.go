package observability

import (
	"context"
	"io"
	"testing"

	"github.com/annel0/worldgen/internal/logging"
	"github.com/annel0/worldgen/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTelemetryDisabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := InitTelemetry(context.Background(), Options{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider(), "выключенная телеметрия не меняет провайдер")
}

func TestGenerationSpansReachExporter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := InitTelemetry(context.Background(), Options{
		Enabled:     true,
		ServiceName: "worldgen-test",
		Exporter:    exporter,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	settings := world.DefaultSettings()
	settings.Seed = "telemetry"
	settings.WorldWidth = 2
	settings.RegionWidth = 9
	settings.RegionBoundaryOffset = 1

	wb := world.NewWorldBuilder(settings,
		world.WithLogger(logging.NewWriterLogger("telemetry-test", io.Discard, logging.ERROR)),
	)
	require.NoError(t, wb.Generate(context.Background()))

	names := map[string]int{}
	for _, span := range exporter.GetSpans() {
		names[span.Name]++
		assert.Equal(t, "worldgen-test", serviceName(span))
	}
	assert.Equal(t, 1, names["world.generate"])
	assert.Equal(t, settings.RegionCount(), names["world.region"])
}

func serviceName(span tracetest.SpanStub) string {
	for _, kv := range span.Resource.Attributes() {
		if kv.Key == "service.name" {
			return kv.Value.AsString()
		}
	}
	return ""
}
