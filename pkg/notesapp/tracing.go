package notesapp

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newTracerProvider builds the provider used for service spans. Without an
// exporter spans are created and dropped, which keeps instrumentation cheap.
func newTracerProvider(config TraceConfig, w io.Writer) (*sdktrace.TracerProvider, error) {
	if !config.Stdout {
		return sdktrace.NewTracerProvider(), nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}
