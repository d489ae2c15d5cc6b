package repository

import (
	"time"

	"github.com/okian/logbook/pkg/logger"
	"github.com/okian/logbook/pkg/metrics"
)

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	now      func() time.Time
	log      logger.Logger
	maxConns int32
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithClock overrides the clock used for created_at and imported_at.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

// WithMaxConns bounds the Postgres pool size.
func WithMaxConns(n int32) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// observe records the latency of a store operation started at start.
func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
