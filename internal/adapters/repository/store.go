// Package repository persists activities, the award catalog, grants and the
// per-source import ledgers.
package repository

import (
	"context"

	"github.com/okian/logbook/internal/domain/model"
)

// DeleteOptions controls what is removed alongside an activity.
type DeleteOptions struct {
	// Cascade removes ledger rows pointing at the activity and revokes awards
	// of UserID whose threshold is no longer met.
	Cascade bool
	UserID  int64
}

// DeleteResult reports what a delete removed.
type DeleteResult struct {
	ImportsRemoved int64 `json:"imports_removed"`
	AwardsRevoked  int64 `json:"awards_revoked"`
}

// ActivityStore is CRUD and aggregation over activities.
type ActivityStore interface {
	// CreateActivity inserts a and sets its ID and CreatedAt.
	CreateActivity(ctx context.Context, a *model.Activity) error
	// GetActivity returns ErrNotFound for unknown ids.
	GetActivity(ctx context.Context, id int64) (model.Activity, error)
	// ListActivities returns every activity, newest date first.
	ListActivities(ctx context.Context) ([]model.Activity, error)
	// UpdateActivity overwrites the editable fields of a.ID.
	UpdateActivity(ctx context.Context, a model.Activity) error
	DeleteActivity(ctx context.Context, id int64, opts DeleteOptions) (DeleteResult, error)

	// Totals aggregates all activities.
	Totals(ctx context.Context) (model.Totals, error)
	// MonthlyStats groups activities dated on or after since (YYYY-MM-DD) by month.
	MonthlyStats(ctx context.Context, since string) ([]model.MonthlyStat, error)
	RecentActivities(ctx context.Context, n int) ([]model.Activity, error)
}

// AwardStore holds the catalog and the grants.
type AwardStore interface {
	Totals(ctx context.Context) (model.Totals, error)
	ListAwards(ctx context.Context) ([]model.AwardDefinition, error)
	CountAwards(ctx context.Context) (int, error)
	// SeedAwards inserts defs and returns how many were written.
	SeedAwards(ctx context.Context, defs []model.AwardDefinition) (int, error)
	// AwardedIDs returns the ids of awards already granted to userID.
	AwardedIDs(ctx context.Context, userID int64) (map[int64]struct{}, error)
	// GrantAward inserts one grant. It reports false when the grant already exists.
	GrantAward(ctx context.Context, userID, awardID int64, dateEarned string) (bool, error)
	// ListAwarded returns grants ordered by type, value desc, date desc.
	ListAwarded(ctx context.Context, userID int64) ([]model.EarnedAward, error)
}

// ImportStore is the per-source import ledger.
type ImportStore interface {
	IsImported(ctx context.Context, source model.Source, externalID string) (bool, error)
	// RecordImport returns ErrDuplicate when externalID is already recorded and
	// ErrNotFound when activityID does not exist.
	RecordImport(ctx context.Context, source model.Source, externalID string, activityID int64) (int64, error)
	// ListImports returns every recorded external id, newest first.
	ListImports(ctx context.Context, source model.Source) ([]string, error)
	// ImportActivity creates a and its ledger row in one transaction. On
	// ErrDuplicate nothing is written.
	ImportActivity(ctx context.Context, source model.Source, externalID string, a *model.Activity) (int64, error)
}

// Store is everything the service persists.
type Store interface {
	ActivityStore
	AwardStore
	ImportStore

	Ping(ctx context.Context) error
	Close() error
}

// ledgerTable maps an importable source to its table and external-id column.
func ledgerTable(source model.Source) (table, column string, err error) {
	switch source {
	case model.SourceGPX:
		return "gpx_imports", "gpx_id", nil
	case model.SourceStrava:
		return "strava_imports", "strava_id", nil
	}
	return "", "", ErrUnknownSource
}
