// Package awards decides which catalog awards a user has earned and grants them.
package awards

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
	"github.com/okian/logbook/pkg/metrics"
)

// Store is the persistence the evaluator needs.
type Store interface {
	Totals(ctx context.Context) (model.Totals, error)
	ListAwards(ctx context.Context) ([]model.AwardDefinition, error)
	AwardedIDs(ctx context.Context, userID int64) (map[int64]struct{}, error)
	GrantAward(ctx context.Context, userID, awardID int64, dateEarned string) (bool, error)
	ListAwarded(ctx context.Context, userID int64) ([]model.EarnedAward, error)
}

// Grant describes one newly written award.
type Grant struct {
	UserID     int64                 `json:"user_id"`
	Award      model.AwardDefinition `json:"award"`
	DateEarned string                `json:"date_earned"`
	Distance   float64               `json:"total_distance"`
	Nights     int                   `json:"total_nights"`
}

// Notifier is told about every grant after it is persisted.
type Notifier interface {
	AwardGranted(ctx context.Context, g Grant) error
}

// Evaluator grants awards from full-table totals.
type Evaluator struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	log      logger.Logger
}

// NewEvaluator creates an evaluator over store.
func NewEvaluator(store Store, opts ...Option) *Evaluator {
	e := &Evaluator{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Qualifies reports whether totals meet def's threshold. The comparison is inclusive.
func Qualifies(def model.AwardDefinition, totals model.Totals) bool {
	switch def.Type {
	case model.AwardCamping:
		return float64(totals.Nights) >= def.Value
	case model.AwardWalkabout:
		return totals.Distance >= def.Value
	}
	return false
}

// Evaluate grants every catalog award userID qualifies for and does not yet
// hold, and returns how many were granted. Grants written before a store
// failure stay written.
func (e *Evaluator) Evaluate(ctx context.Context, userID int64) (granted int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAwardPass(float64(time.Since(start).Microseconds())/1000, err != nil)
	}()

	totals, err := e.store.Totals(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: totals: %w", ErrPersistence, err)
	}
	catalog, err := e.store.ListAwards(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: catalog: %w", ErrPersistence, err)
	}
	held, err := e.store.AwardedIDs(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: awarded: %w", ErrPersistence, err)
	}

	if e.log != nil {
		e.log.Debug(ctx, "evaluating awards",
			logger.Int64("user_id", userID),
			logger.Float64("distance", totals.Distance),
			logger.Int("nights", totals.Nights),
			logger.Int("catalog", len(catalog)))
	}

	today := model.Today(e.now())
	for _, def := range catalog {
		if _, ok := held[def.ID]; ok {
			continue
		}
		if !Qualifies(def, totals) {
			continue
		}
		inserted, err := e.store.GrantAward(ctx, userID, def.ID, today)
		if err != nil {
			return granted, fmt.Errorf("%w: grant %q: %w", ErrPersistence, def.Name, err)
		}
		if !inserted {
			// a concurrent pass got there first
			continue
		}
		granted++
		metrics.RecordAwardGranted(string(def.Type))
		e.announce(ctx, Grant{
			UserID: userID, Award: def, DateEarned: today,
			Distance: totals.Distance, Nights: totals.Nights,
		})
	}

	if e.log != nil && granted > 0 {
		e.log.Info(ctx, "awards granted", logger.Int64("user_id", userID), logger.Int("granted", granted))
	}
	return granted, nil
}

func (e *Evaluator) announce(ctx context.Context, g Grant) {
	if e.log != nil {
		e.log.Info(ctx, "award granted",
			logger.String("award", g.Award.Name),
			logger.String("type", string(g.Award.Type)),
			logger.Float64("value", g.Award.Value))
	}
	if e.notifier == nil {
		return
	}
	if err := e.notifier.AwardGranted(ctx, g); err != nil && e.log != nil {
		e.log.Warn(ctx, "award notification failed", logger.String("award", g.Award.Name), logger.Error(err))
	}
}
