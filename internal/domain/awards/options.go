package awards

import (
	"time"

	"github.com/okian/logbook/pkg/logger"
)

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithNotifier publishes every grant through n.
func WithNotifier(n Notifier) Option {
	return func(e *Evaluator) {
		e.notifier = n
	}
}

// WithClock overrides the clock that dates grants.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the evaluator logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Evaluator) {
		e.log = l
	}
}
