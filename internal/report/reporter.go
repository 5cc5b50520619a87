// Package report is the process-wide sink for errors that reach a request
// handler boundary. Nothing is recovered or retried; failures are tagged
// with an incident id and logged so they can be correlated later.
package report

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Reporter forwards unhandled request errors to the process log.
type Reporter struct {
	log *slog.Logger
}

// New creates a Reporter writing through the given logger. A nil logger
// falls back to slog.Default.
func New(log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{log: log}
}

// Report records an error that escaped the given route and returns the
// incident id assigned to it.
func (r *Reporter) Report(ctx context.Context, route string, err error) string {
	incident := uuid.NewString()
	r.log.ErrorContext(ctx, "unhandled request error",
		"incident", incident,
		"route", route,
		"error", err,
	)
	return incident
}
