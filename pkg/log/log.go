package log

import (
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// New returns the process logger. With an OTLP endpoint configured the
// records go to OpenTelemetry; otherwise they go to stderr as text.
func New(service string, otelEnabled bool) *slog.Logger {
	if otelEnabled {
		return slog.New(otelslog.NewHandler(service))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
