package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
)

type activityRow struct {
	ID                 int64   `gorm:"primaryKey;autoIncrement"`
	Name               string  `gorm:"not null"`
	Date               string  `gorm:"type:text;not null;index"`
	Type               string  `gorm:"not null"`
	Duration           float64 `gorm:"not null;default:0"`
	Distance           float64 `gorm:"not null;default:0"`
	Elevation          int     `gorm:"not null;default:0"`
	Nights             int     `gorm:"not null;default:0"`
	Role               string
	Category           string
	Weather            string
	StartLocation      string
	EndLocation        string
	Comments           string
	IsScoutingActivity bool
	Source             string `gorm:"not null;default:manual"`
	SourceID           *string
	CreatedAt          time.Time
}

func (activityRow) TableName() string { return "activities" }

type awardRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null"`
	Description string
	Icon        string
	Type        string  `gorm:"not null"`
	Value       float64 `gorm:"not null"`
}

func (awardRow) TableName() string { return "awards" }

type awardedRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	UserID     int64  `gorm:"not null;uniqueIndex:idx_awarded_user_award"`
	AwardID    int64  `gorm:"not null;uniqueIndex:idx_awarded_user_award"`
	DateEarned string `gorm:"type:text;not null"`
}

func (awardedRow) TableName() string { return "awarded" }

type gpxImportRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	GPXID      string `gorm:"column:gpx_id;not null;uniqueIndex"`
	ActivityID int64  `gorm:"not null;index"`
	ImportedAt time.Time
}

func (gpxImportRow) TableName() string { return "gpx_imports" }

type stravaImportRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	StravaID   string `gorm:"column:strava_id;not null;uniqueIndex"`
	ActivityID int64  `gorm:"not null;index"`
	ImportedAt time.Time
}

func (stravaImportRow) TableName() string { return "strava_imports" }

func toActivityRow(a model.Activity) activityRow {
	return activityRow{
		ID:                 a.ID,
		Name:               a.Name,
		Date:               a.Date,
		Type:               string(a.Type),
		Duration:           a.Duration,
		Distance:           a.Distance,
		Elevation:          a.Elevation,
		Nights:             a.Nights,
		Role:               a.Role,
		Category:           a.Category,
		Weather:            a.Weather,
		StartLocation:      a.StartLocation,
		EndLocation:        a.EndLocation,
		Comments:           a.Comments,
		IsScoutingActivity: a.IsScoutingActivity,
		Source:             string(a.Source),
		SourceID:           nullIfEmpty(a.SourceID),
		CreatedAt:          a.CreatedAt,
	}
}

func (r activityRow) toModel() model.Activity {
	a := model.Activity{
		ID:                 r.ID,
		Name:               r.Name,
		Date:               r.Date,
		Type:               model.ActivityType(r.Type),
		Duration:           r.Duration,
		Distance:           r.Distance,
		Elevation:          r.Elevation,
		Nights:             r.Nights,
		Role:               r.Role,
		Category:           r.Category,
		Weather:            r.Weather,
		StartLocation:      r.StartLocation,
		EndLocation:        r.EndLocation,
		Comments:           r.Comments,
		IsScoutingActivity: r.IsScoutingActivity,
		Source:             model.Source(r.Source),
		CreatedAt:          r.CreatedAt.UTC(),
	}
	if r.SourceID != nil {
		a.SourceID = *r.SourceID
	}
	return a
}

// SQLiteStore is the embedded gorm-backed Store.
type SQLiteStore struct {
	db  *gorm.DB
	set settings
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and migrates it.
// Paths starting with "file:" are passed through as DSNs.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = path + "?_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// one writer keeps transactions from tripping SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&activityRow{}, &awardRow{}, &awardedRow{}, &gpxImportRow{}, &stravaImportRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db, set: newSettings(opts)}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) CreateActivity(ctx context.Context, a *model.Activity) error {
	defer observe("create_activity", time.Now())
	return s.createActivity(s.db.WithContext(ctx), a)
}

func (s *SQLiteStore) createActivity(tx *gorm.DB, a *model.Activity) error {
	a.CreatedAt = s.set.now().UTC()
	row := toActivityRow(*a)
	row.ID = 0
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	a.ID = row.ID
	return nil
}

func (s *SQLiteStore) GetActivity(ctx context.Context, id int64) (model.Activity, error) {
	defer observe("get_activity", time.Now())
	var row activityRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Activity{}, ErrNotFound
	}
	if err != nil {
		return model.Activity{}, err
	}
	return row.toModel(), nil
}

func (s *SQLiteStore) listActivities(ctx context.Context, limit int) ([]model.Activity, error) {
	var rows []activityRow
	q := s.db.WithContext(ctx).Order("date DESC").Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Activity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *SQLiteStore) ListActivities(ctx context.Context) ([]model.Activity, error) {
	defer observe("list_activities", time.Now())
	return s.listActivities(ctx, 0)
}

func (s *SQLiteStore) RecentActivities(ctx context.Context, n int) ([]model.Activity, error) {
	defer observe("recent_activities", time.Now())
	if n <= 0 {
		return []model.Activity{}, nil
	}
	return s.listActivities(ctx, n)
}

func (s *SQLiteStore) UpdateActivity(ctx context.Context, a model.Activity) error {
	defer observe("update_activity", time.Now())
	res := s.db.WithContext(ctx).Model(&activityRow{}).Where("id = ?", a.ID).Updates(map[string]any{
		"name":                 a.Name,
		"date":                 a.Date,
		"type":                 string(a.Type),
		"duration":             a.Duration,
		"distance":             a.Distance,
		"elevation":            a.Elevation,
		"nights":               a.Nights,
		"role":                 a.Role,
		"category":             a.Category,
		"weather":              a.Weather,
		"start_location":       a.StartLocation,
		"end_location":         a.EndLocation,
		"comments":             a.Comments,
		"is_scouting_activity": a.IsScoutingActivity,
	})
	if res.Error != nil {
		return fmt.Errorf("update activity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteActivity(ctx context.Context, id int64, opts DeleteOptions) (DeleteResult, error) {
	defer observe("delete_activity", time.Now())
	var res DeleteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Delete(&activityRow{}, id)
		if del.Error != nil {
			return fmt.Errorf("delete activity: %w", del.Error)
		}
		if del.RowsAffected == 0 {
			return ErrNotFound
		}
		if !opts.Cascade {
			return nil
		}

		g := tx.Where("activity_id = ?", id).Delete(&gpxImportRow{})
		if g.Error != nil {
			return g.Error
		}
		st := tx.Where("activity_id = ?", id).Delete(&stravaImportRow{})
		if st.Error != nil {
			return st.Error
		}
		res.ImportsRemoved = g.RowsAffected + st.RowsAffected

		var t totalsRow
		if err := tx.Model(&activityRow{}).Select(totalsSelect).Scan(&t).Error; err != nil {
			return fmt.Errorf("aggregate totals: %w", err)
		}
		unmet := tx.Model(&awardRow{}).Select("id").
			Where("(type = ? AND value > ?) OR (type = ? AND value > ?)",
				string(model.AwardCamping), float64(t.Nights), string(model.AwardWalkabout), t.Distance)
		rev := tx.Where("user_id = ? AND award_id IN (?)", opts.UserID, unmet).Delete(&awardedRow{})
		if rev.Error != nil {
			return fmt.Errorf("revoke awards: %w", rev.Error)
		}
		res.AwardsRevoked = rev.RowsAffected
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	if s.set.log != nil && opts.Cascade {
		s.set.log.Info(ctx, "activity deleted with cascade",
			logger.Int64("activity_id", id),
			logger.Int64("imports_removed", res.ImportsRemoved),
			logger.Int64("awards_revoked", res.AwardsRevoked))
	}
	return res, nil
}

const totalsSelect = "COUNT(*) AS activities, COALESCE(SUM(distance), 0) AS distance, " +
	"COALESCE(SUM(duration), 0) AS duration, COALESCE(SUM(nights), 0) AS nights"

type totalsRow struct {
	Activities int64
	Distance   float64
	Duration   float64
	Nights     int64
}

func (s *SQLiteStore) Totals(ctx context.Context) (model.Totals, error) {
	defer observe("totals", time.Now())
	var t totalsRow
	if err := s.db.WithContext(ctx).Model(&activityRow{}).Select(totalsSelect).Scan(&t).Error; err != nil {
		return model.Totals{}, fmt.Errorf("aggregate totals: %w", err)
	}
	return model.Totals{
		Activities: int(t.Activities),
		Distance:   t.Distance,
		Duration:   t.Duration,
		Nights:     int(t.Nights),
	}, nil
}

func (s *SQLiteStore) MonthlyStats(ctx context.Context, since string) ([]model.MonthlyStat, error) {
	defer observe("monthly_stats", time.Now())
	var rows []struct {
		Month    string
		Count    int64
		Distance float64
	}
	err := s.db.WithContext(ctx).Model(&activityRow{}).
		Select("substr(date, 1, 7) AS month, COUNT(*) AS count, COALESCE(SUM(distance), 0) AS distance").
		Where("date >= ?", since).
		Group("month").Order("month").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.MonthlyStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.MonthlyStat{Month: r.Month, Count: int(r.Count), Distance: r.Distance})
	}
	return out, nil
}

func (s *SQLiteStore) ListAwards(ctx context.Context) ([]model.AwardDefinition, error) {
	defer observe("list_awards", time.Now())
	var rows []awardRow
	if err := s.db.WithContext(ctx).Order("type").Order("value").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.AwardDefinition, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AwardDefinition{
			ID: r.ID, Name: r.Name, Description: r.Description, Icon: r.Icon,
			Type: model.AwardType(r.Type), Value: r.Value,
		})
	}
	return out, nil
}

func (s *SQLiteStore) CountAwards(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&awardRow{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) SeedAwards(ctx context.Context, defs []model.AwardDefinition) (int, error) {
	if len(defs) == 0 {
		return 0, nil
	}
	rows := make([]awardRow, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, awardRow{Name: d.Name, Description: d.Description, Icon: d.Icon, Type: string(d.Type), Value: d.Value})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("seed awards: %w", err)
	}
	return len(rows), nil
}

func (s *SQLiteStore) AwardedIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	defer observe("awarded_ids", time.Now())
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&awardedRow{}).Where("user_id = ?", userID).Pluck("award_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *SQLiteStore) GrantAward(ctx context.Context, userID, awardID int64, dateEarned string) (bool, error) {
	defer observe("grant_award", time.Now())
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "award_id"}}, DoNothing: true}).
		Create(&awardedRow{UserID: userID, AwardID: awardID, DateEarned: dateEarned})
	if res.Error != nil {
		return false, fmt.Errorf("insert grant: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *SQLiteStore) ListAwarded(ctx context.Context, userID int64) ([]model.EarnedAward, error) {
	defer observe("list_awarded", time.Now())
	var rows []struct {
		ID          int64
		Name        string
		Description string
		Icon        string
		Type        string
		Value       float64
		DateEarned  string
	}
	err := s.db.WithContext(ctx).Table("awarded AS w").
		Select("a.id, a.name, a.description, a.icon, a.type, a.value, w.date_earned").
		Joins("JOIN awards AS a ON a.id = w.award_id").
		Where("w.user_id = ?", userID).
		Order("a.type").Order("a.value DESC").Order("w.date_earned DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.EarnedAward, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.EarnedAward{
			AwardDefinition: model.AwardDefinition{
				ID: r.ID, Name: r.Name, Description: r.Description, Icon: r.Icon,
				Type: model.AwardType(r.Type), Value: r.Value,
			},
			DateEarned: r.DateEarned,
		})
	}
	return out, nil
}

func (s *SQLiteStore) IsImported(ctx context.Context, source model.Source, externalID string) (bool, error) {
	defer observe("is_imported", time.Now())
	return s.isImported(s.db.WithContext(ctx), source, externalID)
}

func (s *SQLiteStore) isImported(tx *gorm.DB, source model.Source, externalID string) (bool, error) {
	table, column, err := ledgerTable(source)
	if err != nil {
		return false, err
	}
	var n int64
	if err := tx.Table(table).Where(column+" = ?", externalID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) RecordImport(ctx context.Context, source model.Source, externalID string, activityID int64) (int64, error) {
	defer observe("record_import", time.Now())
	if _, _, err := ledgerTable(source); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&activityRow{}).Where("id = ?", activityID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		var err error
		id, err = s.insertLedgerRow(tx, source, externalID, activityID, s.set.now().UTC())
		return err
	})
	return id, err
}

func (s *SQLiteStore) ImportActivity(ctx context.Context, source model.Source, externalID string, a *model.Activity) (int64, error) {
	defer observe("import_activity", time.Now())
	if _, _, err := ledgerTable(source); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.isImported(tx, source, externalID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicate
		}
		if err := s.createActivity(tx, a); err != nil {
			return err
		}
		id, err = s.insertLedgerRow(tx, source, externalID, a.ID, a.CreatedAt)
		return err
	})
	if err != nil {
		a.ID = 0
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) insertLedgerRow(tx *gorm.DB, source model.Source, externalID string, activityID int64, at time.Time) (int64, error) {
	var (
		err error
		id  int64
	)
	switch source {
	case model.SourceGPX:
		row := gpxImportRow{GPXID: externalID, ActivityID: activityID, ImportedAt: at}
		err = tx.Create(&row).Error
		id = row.ID
	case model.SourceStrava:
		row := stravaImportRow{StravaID: externalID, ActivityID: activityID, ImportedAt: at}
		err = tx.Create(&row).Error
		id = row.ID
	default:
		return 0, ErrUnknownSource
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s ledger row: %w", source, err)
	}
	return id, nil
}

func (s *SQLiteStore) ListImports(ctx context.Context, source model.Source) ([]string, error) {
	defer observe("list_imports", time.Now())
	table, column, err := ledgerTable(source)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	if err := s.db.WithContext(ctx).Table(table).Order("imported_at DESC").Order("id DESC").Pluck(column, &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
