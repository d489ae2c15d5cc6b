package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
)

// BuildReport summarizes totals and held awards, newest award first.
func (s *Service) BuildReport(ctx context.Context) (model.Report, error) {
	if err := s.ready(); err != nil {
		return model.Report{}, err
	}
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return model.Report{}, fmt.Errorf("totals: %w", err)
	}
	earned, err := s.store.ListAwarded(ctx, s.userID)
	if err != nil {
		return model.Report{}, fmt.Errorf("awarded: %w", err)
	}
	sort.SliceStable(earned, func(i, j int) bool { return earned[i].DateEarned > earned[j].DateEarned })
	if earned == nil {
		earned = []model.EarnedAward{}
	}

	r := model.Report{
		UserID:      s.userID,
		Activities:  totals.Activities,
		Distance:    totals.Distance,
		Nights:      totals.Nights,
		Awards:      earned,
		GeneratedAt: s.now().UTC(),
	}
	if totals.Activities > 0 {
		r.AverageDistance = totals.Distance / float64(totals.Activities)
	}
	return r, nil
}

// SendReport builds the report and publishes it. The report is returned even
// when publishing fails.
func (s *Service) SendReport(ctx context.Context) (model.Report, error) {
	r, err := s.BuildReport(ctx)
	if err != nil {
		return model.Report{}, err
	}
	if s.publisher == nil {
		return r, fmt.Errorf("%w: no publisher configured", ErrReportNotSent)
	}
	if err := s.publisher.ReportSummary(ctx, r); err != nil {
		s.logger.Warn(ctx, "report not sent", logger.Error(err))
		return r, fmt.Errorf("%w: %w", ErrReportNotSent, err)
	}
	s.logger.Info(ctx, "report sent", logger.Int("activities", r.Activities), logger.Int("awards", len(r.Awards)))
	return r, nil
}
