// Package log provides the single zerolog logger construction point
// used across dagflow, following the teacher's pkg/log package:
// console-pretty output for a local terminal, plain JSON lines once
// running under Kubernetes.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. Output switches to plain JSON
// on os.Stderr when KUBERNETES_SERVICE_HOST is set (i.e. running in a
// pod, where a log collector wants structured lines), and to a
// colorized console writer otherwise.
func New() *zerolog.Logger {
	var output io.Writer
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		output = os.Stderr
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02T15:04:05.999Z07:00"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(output).With().Timestamp().Logger()
	return &logger
}

// Component returns a child logger tagged with a "component" field,
// used by callers such as cmd/pipeline-demo to scope the loggers they
// hand to scheduler and isolation (both of which log through logr).
func Component(base *zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
