// Package telemetry sets up the two ambient concerns every YAMF process
// shares: structured logging and Prometheus metrics. Grounded on the
// teacher's cmd/controlplane/main.go slog setup.
package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide logger. Production and staging get the
// JSON handler (structured for log ingestion); everything else gets the
// teacher's plain text handler, matching the dev/prod gating already
// required elsewhere in the fabric (SPEC_FULL.md AMBIENT STACK).
func NewLogger(environment string, component string) *slog.Logger {
	level := slog.LevelInfo
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isProdLike(environment) {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("component", component)
}

func isProdLike(environment string) bool {
	lower := strings.ToLower(environment)
	return strings.Contains(lower, "prod") || strings.Contains(lower, "staging")
}
