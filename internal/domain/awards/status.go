package awards

import (
	"context"
	"fmt"

	"github.com/okian/logbook/internal/domain/model"
)

// Totals is the progress part of Status.
type Totals struct {
	Distance float64 `json:"distance"`
	Nights   int     `json:"nights"`
}

// Status is the read-side view of a user's awards.
type Status struct {
	// HighestAwards holds, per type, the held award with the highest value.
	HighestAwards []model.EarnedAward `json:"highest_awards"`
	// NextAwards holds, per type, the lowest-value award not yet held.
	NextAwards []model.AwardDefinition `json:"next_awards"`
	Totals     Totals                  `json:"totals"`
	AllAwarded []model.EarnedAward     `json:"all_awarded"`
}

// Status projects the catalog, the grants and the totals for userID.
func (e *Evaluator) Status(ctx context.Context, userID int64) (Status, error) {
	earned, err := e.store.ListAwarded(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("%w: awarded: %w", ErrPersistence, err)
	}
	catalog, err := e.store.ListAwards(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("%w: catalog: %w", ErrPersistence, err)
	}
	totals, err := e.store.Totals(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("%w: totals: %w", ErrPersistence, err)
	}

	return Status{
		HighestAwards: Highest(earned),
		NextAwards:    Next(catalog, earned),
		Totals:        Totals{Distance: totals.Distance, Nights: totals.Nights},
		AllAwarded:    earned,
	}, nil
}

// Highest returns, per type, the held award with the highest value; ties go
// to the latest date_earned. Output follows the order types first appear in earned.
func Highest(earned []model.EarnedAward) []model.EarnedAward {
	best := make(map[model.AwardType]int)
	out := []model.EarnedAward{}
	for _, e := range earned {
		i, ok := best[e.Type]
		if !ok {
			best[e.Type] = len(out)
			out = append(out, e)
			continue
		}
		cur := out[i]
		if e.Value > cur.Value || (e.Value == cur.Value && e.DateEarned > cur.DateEarned) {
			out[i] = e
		}
	}
	return out
}

// Next returns, per type, the lowest-value catalog award not in earned.
// Output follows the order types first appear in catalog.
func Next(catalog []model.AwardDefinition, earned []model.EarnedAward) []model.AwardDefinition {
	held := make(map[int64]struct{}, len(earned))
	for _, e := range earned {
		held[e.ID] = struct{}{}
	}
	lowest := make(map[model.AwardType]int)
	out := []model.AwardDefinition{}
	for _, def := range catalog {
		if _, ok := held[def.ID]; ok {
			continue
		}
		i, ok := lowest[def.Type]
		if !ok {
			lowest[def.Type] = len(out)
			out = append(out, def)
			continue
		}
		if def.Value < out[i].Value {
			out[i] = def
		}
	}
	return out
}
