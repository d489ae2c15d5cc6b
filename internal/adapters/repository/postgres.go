package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
)

//go:embed schema/postgres.sql
var postgresSchema string

const pgUniqueViolation = "23505"

const activityColumns = `id, name, to_char(date, 'YYYY-MM-DD'), type, duration, distance, elevation, nights,
	role, category, weather, start_location, end_location, comments, is_scouting_activity,
	source, source_id, created_at`

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
	set  settings
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	set := newSettings(opts)
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if set.maxConns > 0 {
		cfg.MaxConns = set.maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	s := &PostgresStore{pool: pool, set: set}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool without migrating.
func NewPostgresStoreFromPool(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{pool: pool, set: newSettings(opts)}
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanActivity(row pgx.Row) (model.Activity, error) {
	var (
		a        model.Activity
		sourceID *string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Date, &a.Type, &a.Duration, &a.Distance, &a.Elevation, &a.Nights,
		&a.Role, &a.Category, &a.Weather, &a.StartLocation, &a.EndLocation, &a.Comments, &a.IsScoutingActivity,
		&a.Source, &sourceID, &a.CreatedAt)
	if err != nil {
		return model.Activity{}, err
	}
	if sourceID != nil {
		a.SourceID = *sourceID
	}
	return a, nil
}

func collectActivities(rows pgx.Rows) ([]model.Activity, error) {
	defer rows.Close()
	out := []model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) insertActivity(ctx context.Context, q execQuerier, a *model.Activity) error {
	const stmt = `INSERT INTO activities (name, date, type, duration, distance, elevation, nights, role, category,
		weather, start_location, end_location, comments, is_scouting_activity, source, source_id, created_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`
	a.CreatedAt = s.set.now().UTC()
	return q.QueryRow(ctx, stmt, a.Name, a.Date, a.Type, a.Duration, a.Distance, a.Elevation, a.Nights,
		a.Role, a.Category, a.Weather, a.StartLocation, a.EndLocation, a.Comments, a.IsScoutingActivity,
		a.Source, nullIfEmpty(a.SourceID), a.CreatedAt).Scan(&a.ID)
}

func (s *PostgresStore) CreateActivity(ctx context.Context, a *model.Activity) error {
	defer observe("create_activity", time.Now())
	if err := s.insertActivity(ctx, s.pool, a); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActivity(ctx context.Context, id int64) (model.Activity, error) {
	defer observe("get_activity", time.Now())
	a, err := scanActivity(s.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Activity{}, ErrNotFound
	}
	return a, err
}

func (s *PostgresStore) ListActivities(ctx context.Context) ([]model.Activity, error) {
	defer observe("list_activities", time.Now())
	rows, err := s.pool.Query(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY date DESC, created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func (s *PostgresStore) RecentActivities(ctx context.Context, n int) ([]model.Activity, error) {
	defer observe("recent_activities", time.Now())
	rows, err := s.pool.Query(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY date DESC, created_at DESC, id DESC LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func (s *PostgresStore) UpdateActivity(ctx context.Context, a model.Activity) error {
	defer observe("update_activity", time.Now())
	const stmt = `UPDATE activities SET name = $2, date = $3::date, type = $4, duration = $5, distance = $6,
		elevation = $7, nights = $8, role = $9, category = $10, weather = $11, start_location = $12,
		end_location = $13, comments = $14, is_scouting_activity = $15
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, stmt, a.ID, a.Name, a.Date, a.Type, a.Duration, a.Distance, a.Elevation, a.Nights,
		a.Role, a.Category, a.Weather, a.StartLocation, a.EndLocation, a.Comments, a.IsScoutingActivity)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteActivity(ctx context.Context, id int64, opts DeleteOptions) (DeleteResult, error) {
	defer observe("delete_activity", time.Now())
	var res DeleteResult
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return res, fmt.Errorf("delete activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return res, ErrNotFound
	}

	if opts.Cascade {
		for _, source := range []model.Source{model.SourceGPX, model.SourceStrava} {
			table, _, _ := ledgerTable(source)
			tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE activity_id = $1`, id)
			if err != nil {
				return res, fmt.Errorf("delete %s rows: %w", table, err)
			}
			res.ImportsRemoved += tag.RowsAffected()
		}

		var distance float64
		var nights int64
		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(distance), 0), COALESCE(SUM(nights), 0) FROM activities`).
			Scan(&distance, &nights); err != nil {
			return res, fmt.Errorf("aggregate totals: %w", err)
		}
		tag, err = tx.Exec(ctx, `DELETE FROM awarded w USING awards a
			WHERE w.award_id = a.id AND w.user_id = $1
			AND ((a.type = 'camping' AND a.value > $2) OR (a.type = 'walkabout' AND a.value > $3))`,
			opts.UserID, float64(nights), distance)
		if err != nil {
			return res, fmt.Errorf("revoke awards: %w", err)
		}
		res.AwardsRevoked = tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
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

func (s *PostgresStore) Totals(ctx context.Context) (model.Totals, error) {
	defer observe("totals", time.Now())
	var t model.Totals
	var count, nights int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(distance), 0), COALESCE(SUM(duration), 0), COALESCE(SUM(nights), 0)
		FROM activities`).Scan(&count, &t.Distance, &t.Duration, &nights)
	if err != nil {
		return model.Totals{}, fmt.Errorf("aggregate totals: %w", err)
	}
	t.Activities = int(count)
	t.Nights = int(nights)
	return t, nil
}

func (s *PostgresStore) MonthlyStats(ctx context.Context, since string) ([]model.MonthlyStat, error) {
	defer observe("monthly_stats", time.Now())
	rows, err := s.pool.Query(ctx, `SELECT to_char(date, 'YYYY-MM') AS month, COUNT(*), COALESCE(SUM(distance), 0)
		FROM activities WHERE date >= $1::date GROUP BY month ORDER BY month`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MonthlyStat{}
	for rows.Next() {
		var (
			m     model.MonthlyStat
			count int64
		)
		if err := rows.Scan(&m.Month, &count, &m.Distance); err != nil {
			return nil, err
		}
		m.Count = int(count)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListAwards(ctx context.Context) ([]model.AwardDefinition, error) {
	defer observe("list_awards", time.Now())
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, icon, type, value FROM awards ORDER BY type, value, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AwardDefinition{}
	for rows.Next() {
		var d model.AwardDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Icon, &d.Type, &d.Value); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountAwards(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM awards`).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PostgresStore) SeedAwards(ctx context.Context, defs []model.AwardDefinition) (int, error) {
	batch := &pgx.Batch{}
	for _, d := range defs {
		batch.Queue(`INSERT INTO awards (name, description, icon, type, value) VALUES ($1, $2, $3, $4, $5)`,
			d.Name, d.Description, d.Icon, d.Type, d.Value)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range defs {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("seed award %q: %w", defs[i].Name, err)
		}
	}
	return len(defs), nil
}

func (s *PostgresStore) AwardedIDs(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	defer observe("awarded_ids", time.Now())
	rows, err := s.pool.Query(ctx, `SELECT award_id FROM awarded WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (s *PostgresStore) GrantAward(ctx context.Context, userID, awardID int64, dateEarned string) (bool, error) {
	defer observe("grant_award", time.Now())
	tag, err := s.pool.Exec(ctx, `INSERT INTO awarded (user_id, award_id, date_earned) VALUES ($1, $2, $3::date)
		ON CONFLICT (user_id, award_id) DO NOTHING`, userID, awardID, dateEarned)
	if err != nil {
		return false, fmt.Errorf("insert grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ListAwarded(ctx context.Context, userID int64) ([]model.EarnedAward, error) {
	defer observe("list_awarded", time.Now())
	rows, err := s.pool.Query(ctx, `SELECT a.id, a.name, a.description, a.icon, a.type, a.value, to_char(w.date_earned, 'YYYY-MM-DD')
		FROM awarded w JOIN awards a ON a.id = w.award_id
		WHERE w.user_id = $1
		ORDER BY a.type, a.value DESC, w.date_earned DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.EarnedAward{}
	for rows.Next() {
		var e model.EarnedAward
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Icon, &e.Type, &e.Value, &e.DateEarned); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) IsImported(ctx context.Context, source model.Source, externalID string) (bool, error) {
	defer observe("is_imported", time.Now())
	table, column, err := ledgerTable(source)
	if err != nil {
		return false, err
	}
	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE `+column+` = $1)`, externalID).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) RecordImport(ctx context.Context, source model.Source, externalID string, activityID int64) (int64, error) {
	defer observe("record_import", time.Now())
	table, column, err := ledgerTable(source)
	if err != nil {
		return 0, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var found bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE id = $1)`, activityID).Scan(&found); err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotFound
	}
	id, err := insertLedgerRow(ctx, tx, table, column, externalID, activityID, s.set.now().UTC())
	if err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func (s *PostgresStore) ImportActivity(ctx context.Context, source model.Source, externalID string, a *model.Activity) (int64, error) {
	defer observe("import_activity", time.Now())
	table, column, err := ledgerTable(source)
	if err != nil {
		return 0, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE `+column+` = $1)`, externalID).Scan(&exists); err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrDuplicate
	}
	if err := s.insertActivity(ctx, tx, a); err != nil {
		return 0, fmt.Errorf("insert activity: %w", err)
	}
	id, err := insertLedgerRow(ctx, tx, table, column, externalID, a.ID, a.CreatedAt)
	if err != nil {
		a.ID = 0
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		a.ID = 0
		return 0, err
	}
	return id, nil
}

func insertLedgerRow(ctx context.Context, tx pgx.Tx, table, column, externalID string, activityID int64, at time.Time) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `INSERT INTO `+table+` (`+column+`, activity_id, imported_at) VALUES ($1, $2, $3)
		ON CONFLICT (`+column+`) DO NOTHING RETURNING id`, externalID, activityID, at).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s row: %w", table, err)
	}
	return id, nil
}

func (s *PostgresStore) ListImports(ctx context.Context, source model.Source) ([]string, error) {
	defer observe("list_imports", time.Now())
	table, column, err := ledgerTable(source)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT `+column+` FROM `+table+` ORDER BY imported_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
