package service

import (
	"context"

	"github.com/okian/logbook/internal/domain/awards"
)

// ProcessAwards grants every award the configured user has newly earned.
func (s *Service) ProcessAwards(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.evaluator.Evaluate(ctx, s.userID)
}

// AwardStatus returns the highest, next and all held awards with totals.
func (s *Service) AwardStatus(ctx context.Context) (awards.Status, error) {
	if err := s.ready(); err != nil {
		return awards.Status{}, err
	}
	return s.evaluator.Status(ctx, s.userID)
}
