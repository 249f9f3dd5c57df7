package alert

import (
	"context"
	"log/slog"

	"github.com/rollbar/rollbar-go"
)

// Reporter forwards unexpected errors to an error tracker.
type Reporter interface {
	Error(ctx context.Context, err error, fields map[string]interface{})
	Close()
}

// LogReporter only logs. Used when no tracker token is configured.
type LogReporter struct{}

func (LogReporter) Error(ctx context.Context, err error, fields map[string]interface{}) {
	attrs := make([]any, 0, len(fields)*2+2)
	attrs = append(attrs, "error", err)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	slog.ErrorContext(ctx, "unexpected error", attrs...)
}

func (LogReporter) Close() {}

// RollbarReporter logs and sends the error to Rollbar.
type RollbarReporter struct {
	client *rollbar.Client
	log    LogReporter
}

func NewRollbarReporter(token, environment, codeVersion string) *RollbarReporter {
	client := rollbar.New(token, environment, codeVersion, "", "")
	return &RollbarReporter{client: client}
}

func (r *RollbarReporter) Error(ctx context.Context, err error, fields map[string]interface{}) {
	r.log.Error(ctx, err, fields)
	r.client.ErrorWithExtrasAndContext(ctx, rollbar.ERR, err, fields)
}

// Close flushes queued items.
func (r *RollbarReporter) Close() {
	r.client.Close()
}

// New picks Rollbar when a token is set.
func New(token, environment, codeVersion string) Reporter {
	if token == "" {
		return LogReporter{}
	}
	return NewRollbarReporter(token, environment, codeVersion)
}
