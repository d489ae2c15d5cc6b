//go:build integration

package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/domain/model"
)

func startPostgres(t *testing.T) *repository.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("logbook"),
		postgrescontainer.WithUsername("logbook"),
		postgrescontainer.WithPassword("logbook"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	store, err := repository.NewPostgresStore(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := startPostgres(t)

	// schema application is idempotent
	require.NoError(t, store.Migrate(ctx))

	a := &model.Activity{Name: "Ridge", Date: "2024-05-01", Type: model.TypeHiking, Distance: 12.5, Nights: 1, Source: model.SourceManual}
	require.NoError(t, store.CreateActivity(ctx, a))
	require.NotZero(t, a.ID)

	got, err := store.GetActivity(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "2024-05-01", got.Date)
	require.Equal(t, "", got.SourceID)

	totals, err := store.Totals(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, totals.Activities)
	require.InDelta(t, 12.5, totals.Distance, 1e-9)

	n, err := store.SeedAwards(ctx, []model.AwardDefinition{
		{Name: "Walker 10", Type: model.AwardWalkabout, Value: 10},
		{Name: "Camper 5", Type: model.AwardCamping, Value: 5},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	defs, err := store.ListAwards(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	ok, err := store.GrantAward(ctx, 1, defs[1].ID, "2024-06-01")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = store.GrantAward(ctx, 1, defs[1].ID, "2024-06-02")
	require.NoError(t, err)
	require.False(t, ok, "unique (user_id, award_id) must reject the second grant")

	earned, err := store.ListAwarded(ctx, 1)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	require.Equal(t, "2024-06-01", earned[0].DateEarned)
}

func TestPostgresImportLedger(t *testing.T) {
	ctx := context.Background()
	store := startPostgres(t)

	a := &model.Activity{Name: "Ride", Date: "2024-05-02", Type: model.TypeCycling, Distance: 40, Source: model.SourceStrava, SourceID: "42"}
	id, err := store.ImportActivity(ctx, model.SourceStrava, "42", a)
	require.NoError(t, err)
	require.NotZero(t, id)

	dup := &model.Activity{Name: "Ride", Date: "2024-05-02", Type: model.TypeCycling, Source: model.SourceStrava}
	_, err = store.ImportActivity(ctx, model.SourceStrava, "42", dup)
	require.True(t, errors.Is(err, repository.ErrDuplicate))

	list, err := store.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "a duplicate import must not leave an orphan activity")

	_, err = store.RecordImport(ctx, model.SourceGPX, "x.gpx", 9999)
	require.True(t, errors.Is(err, repository.ErrNotFound))

	// concurrent recorders of one id: exactly one wins
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.RecordImport(ctx, model.SourceGPX, "race.gpx", a.ID); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, success)

	ids, err := store.ListImports(ctx, model.SourceGPX)
	require.NoError(t, err)
	require.Equal(t, []string{"race.gpx"}, ids)

	res, err := store.DeleteActivity(ctx, a.ID, repository.DeleteOptions{Cascade: true, UserID: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.ImportsRemoved)
}
