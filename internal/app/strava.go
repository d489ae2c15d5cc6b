package service

import (
	"context"

	"github.com/okian/logbook/internal/adapters/strava"
	"github.com/okian/logbook/internal/domain/model"
)

func (s *Service) stravaClient() (*strava.Client, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.strava == nil {
		return nil, ErrStravaDisabled
	}
	return s.strava, nil
}

// StravaExchange trades an OAuth code for tokens.
func (s *Service) StravaExchange(ctx context.Context, code string) (strava.Token, error) {
	c, err := s.stravaClient()
	if err != nil {
		return strava.Token{}, err
	}
	return c.Exchange(ctx, code)
}

// StravaRefresh renews an access token.
func (s *Service) StravaRefresh(ctx context.Context, refreshToken string) (strava.Token, error) {
	c, err := s.stravaClient()
	if err != nil {
		return strava.Token{}, err
	}
	return c.Refresh(ctx, refreshToken)
}

// StravaActivities lists one page of outdoor activities, each flagged with
// whether it was already imported.
func (s *Service) StravaActivities(ctx context.Context, accessToken string, perPage, page int) ([]strava.Activity, error) {
	c, err := s.stravaClient()
	if err != nil {
		return nil, err
	}
	all, err := c.ListActivities(ctx, accessToken, perPage, page)
	if err != nil {
		return nil, err
	}
	ids, err := s.ledger.List(ctx, model.SourceStrava)
	if err != nil {
		return nil, err
	}
	imported := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		imported[id] = struct{}{}
	}
	out := strava.FilterOutdoor(all)
	for i := range out {
		_, out[i].Imported = imported[out[i].ExternalID()]
	}
	return out, nil
}

// ImportStravaActivity stores a Strava activity keyed by its Strava id. It
// does not need a configured Strava client.
func (s *Service) ImportStravaActivity(ctx context.Context, a strava.Activity) (ImportResult, error) {
	if err := s.ready(); err != nil {
		return ImportResult{}, err
	}
	if a.ID <= 0 {
		return ImportResult{}, ErrInvalidArgument
	}
	activityID, recordID, err := s.ledger.Import(ctx, model.SourceStrava, a.ExternalID(), a.ToActivity())
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{ID: recordID, ActivityID: activityID}, nil
}
