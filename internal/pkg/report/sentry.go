// Package report forwards unexpected errors to Sentry.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config configures the Sentry client. An empty DSN disables reporting.
type Config struct {
	DSN         string
	Environment string
	Release     string
	ServerName  string
}

// Reporter captures errors on its own Sentry hub.
type Reporter struct {
	hub *sentry.Hub
}

// New creates a Reporter. With an empty DSN it returns a Reporter that drops
// everything.
func New(cfg Config) (*Reporter, error) {
	if cfg.DSN == "" {
		slog.Warn("sentry DSN not configured, error reporting disabled")
		return &Reporter{}, nil
	}
	return newReporter(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		ServerName:  cfg.ServerName,
		BeforeSend:  scrubHeaders,
	})
}

func newReporter(opts sentry.ClientOptions) (*Reporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	slog.Info("sentry initialized", "environment", opts.Environment, "release", opts.Release)
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func scrubHeaders(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil && event.Request.Headers != nil {
		delete(event.Request.Headers, "Authorization")
		delete(event.Request.Headers, "Cookie")
		delete(event.Request.Headers, "X-User-Id")
	}
	return event
}

// Enabled reports whether events are sent anywhere.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureError sends err with tags attached. Nil errors and a disabled
// Reporter are no-ops.
func (r *Reporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil || !r.Enabled() {
		return
	}
	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		scope.SetContext("error", sentry.Context{"type": fmt.Sprintf("%T", err)})
		hub.CaptureException(err)
	})
	slog.DebugContext(ctx, "error captured in sentry", "error", err)
}

// Flush waits up to timeout for queued events to be delivered.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}

// Recover captures a panic, flushes and re-panics. Use with defer.
func (r *Reporter) Recover() {
	if v := recover(); v != nil {
		err, ok := v.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", v)
		}
		r.CaptureError(context.Background(), err, map[string]string{"kind": "panic"})
		r.Flush(2 * time.Second)
		panic(v)
	}
}
