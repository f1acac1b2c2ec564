package observability

import (
	"context"
	"time"

	"github.com/annel0/worldgen/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Options настройки трассировки
type Options struct {
	Enabled     bool
	ServiceName string
	// Endpoint host:port OTLP/HTTP коллектора, пусто: localhost:4318
	Endpoint string
	// Exporter заменяет OTLP экспортер (тесты, отладка). Спаны отдаются синхронно.
	Exporter trace.SpanExporter
}

// ShutdownFunc завершает работу TracerProvider и сбрасывает буферы
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
// При выключенной телеметрии глобальный провайдер не трогается.
func InitTelemetry(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if !opts.Enabled {
		logging.Debug("📡 OpenTelemetry выключен")
		return noopShutdown, nil
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "worldgen"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	var exportOpt trace.TracerProviderOption
	target := "custom"
	if opts.Exporter != nil {
		exportOpt = trace.WithSyncer(opts.Exporter)
	} else {
		var clientOpts []otlptracehttp.Option
		target = "localhost:4318"
		if opts.Endpoint != "" {
			clientOpts = append(clientOpts, otlptracehttp.WithEndpoint(opts.Endpoint), otlptracehttp.WithInsecure())
			target = opts.Endpoint
		}
		exp, err := otlptracehttp.New(ctx, clientOpts...)
		if err != nil {
			return nil, err
		}
		exportOpt = trace.WithBatcher(exp)
	}

	tp := trace.NewTracerProvider(
		exportOpt,
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (OTLP → %s, service=%s)", target, opts.ServiceName)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}
