package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
	"github.com/okian/logbook/pkg/metrics"
)

const (
	recentActivities = 5
	statsMonths      = 12
)

// CreateActivity validates and stores a manually entered activity.
func (s *Service) CreateActivity(ctx context.Context, a model.Activity) (model.Activity, error) {
	if err := s.ready(); err != nil {
		return model.Activity{}, err
	}
	a.ID = 0
	a.Source = model.SourceManual
	a.SourceID = ""
	a.Normalize()
	if err := a.Validate(); err != nil {
		return model.Activity{}, err
	}
	if err := s.store.CreateActivity(ctx, &a); err != nil {
		return model.Activity{}, fmt.Errorf("create activity: %w", err)
	}
	metrics.RecordActivityCreated(string(a.Source))
	s.logger.Info(ctx, "activity created", logger.Int64("id", a.ID), logger.String("type", string(a.Type)))
	return a, nil
}

// GetActivity returns one activity.
func (s *Service) GetActivity(ctx context.Context, id int64) (model.Activity, error) {
	if err := s.ready(); err != nil {
		return model.Activity{}, err
	}
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return model.Activity{}, mapStoreErr(err, "activity %d", id)
	}
	return a, nil
}

// ListActivities returns every activity, newest first.
func (s *Service) ListActivities(ctx context.Context) ([]model.Activity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	out, err := s.store.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if out == nil {
		out = []model.Activity{}
	}
	return out, nil
}

// UpdateActivity overwrites the editable fields of activity id. Source and
// source id are kept from the stored row.
func (s *Service) UpdateActivity(ctx context.Context, id int64, a model.Activity) (model.Activity, error) {
	if err := s.ready(); err != nil {
		return model.Activity{}, err
	}
	cur, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return model.Activity{}, mapStoreErr(err, "activity %d", id)
	}
	a.ID = id
	a.Source = cur.Source
	a.SourceID = cur.SourceID
	a.CreatedAt = cur.CreatedAt
	a.Normalize()
	if err := a.Validate(); err != nil {
		return model.Activity{}, err
	}
	if err := s.store.UpdateActivity(ctx, a); err != nil {
		return model.Activity{}, mapStoreErr(err, "activity %d", id)
	}
	return a, nil
}

// DeleteActivity removes activity id according to the delete policy.
func (s *Service) DeleteActivity(ctx context.Context, id int64) (repository.DeleteResult, error) {
	if err := s.ready(); err != nil {
		return repository.DeleteResult{}, err
	}
	opts := repository.DeleteOptions{Cascade: s.deletePolicy == DeleteCascade, UserID: s.userID}
	res, err := s.store.DeleteActivity(ctx, id, opts)
	if err != nil {
		return repository.DeleteResult{}, mapStoreErr(err, "activity %d", id)
	}
	metrics.RecordActivityDeleted()
	s.logger.Info(ctx, "activity deleted",
		logger.Int64("id", id),
		logger.String("policy", s.deletePolicy),
		logger.Int64("imports_removed", res.ImportsRemoved),
		logger.Int64("awards_revoked", res.AwardsRevoked))
	return res, nil
}

// Stats returns totals, the last twelve months and the five latest activities.
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	if err := s.ready(); err != nil {
		return model.Stats{}, err
	}
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("totals: %w", err)
	}
	since := s.now().UTC().AddDate(0, -statsMonths, 0).Format(model.DateLayout)
	monthly, err := s.store.MonthlyStats(ctx, since)
	if err != nil {
		return model.Stats{}, fmt.Errorf("monthly stats: %w", err)
	}
	recent, err := s.store.RecentActivities(ctx, recentActivities)
	if err != nil {
		return model.Stats{}, fmt.Errorf("recent activities: %w", err)
	}
	if monthly == nil {
		monthly = []model.MonthlyStat{}
	}
	if recent == nil {
		recent = []model.Activity{}
	}
	return model.Stats{Totals: totals, Monthly: monthly, Recent: recent}, nil
}

func mapStoreErr(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
