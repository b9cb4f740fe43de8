// Package tracking reports unexpected errors to Sentry.
package tracking

import (
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// Config holds the Sentry client options. An empty DSN disables reporting.
type Config struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
	Debug       bool
}

// Reporter forwards errors to Sentry.
type Reporter struct {
	hub *sentry.Hub
}

// New initialises a Sentry client and returns a reporter bound to its hub.
// With an empty DSN the client is created in no-op mode.
func New(cfg Config) (*Reporter, error) {
	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1.0
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       rate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, err
	}

	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// CaptureException reports err with the given tags attached.
func (r *Reporter) CaptureException(err error, tags map[string]string) {
	if r == nil || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

// Close flushes buffered events.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.hub.Flush(flushTimeout)
}
