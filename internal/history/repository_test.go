package history_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/internal/history"
)

// testDatabaseEnv points the Postgres repository tests at a scratch
// database. Each run works in its own schema and drops it afterwards.
const testDatabaseEnv = "HISTORY_TEST_DATABASE_URL"

type repoFactory func(t *testing.T) history.Repository

func repositories(t *testing.T) map[string]repoFactory {
	t.Helper()
	return map[string]repoFactory{
		"memory": func(*testing.T) history.Repository {
			return history.NewInMemoryRepository()
		},
		"postgres": newPostgresRepository,
	}
}

func newPostgresRepository(t *testing.T) history.Repository {
	t.Helper()

	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx := context.Background()
	schema := "history_test_" + uuid.NewString()[:8]

	cfg, err := pgxpool.ParseConfig(url)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	quoted := pgx.Identifier{schema}.Sanitize()
	_, err = pool.Exec(ctx, "CREATE SCHEMA "+quoted)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP SCHEMA "+quoted+" CASCADE")
	})

	migration, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_prediction_records.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(migration))
	require.NoError(t, err)

	return history.NewPostgresRepository(pool)
}

func ids(records []*history.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestRepository_KeepsHundredNewest(t *testing.T) {
	for name, factory := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := factory(t)
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			for i := 0; i <= history.MaxRecords; i++ {
				require.NoError(t, repo.Save(ctx, record(i, base.Add(time.Duration(i)*time.Minute))))
			}

			records, err := repo.ListRecent(ctx, 0)
			require.NoError(t, err)
			require.Len(t, records, history.MaxRecords)

			assert.Equal(t, "prd_100", records[0].ID)
			assert.Equal(t, "prd_001", records[len(records)-1].ID)
			assert.NotContains(t, ids(records), "prd_000")
		})
	}
}

func TestRepository_OrdersByCreatedAtThenID(t *testing.T) {
	for name, factory := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := factory(t)
			ctx := context.Background()
			at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

			require.NoError(t, repo.Save(ctx, record(2, at)))
			require.NoError(t, repo.Save(ctx, record(9, at)))
			require.NoError(t, repo.Save(ctx, record(5, at)))
			require.NoError(t, repo.Save(ctx, record(1, at.Add(-time.Hour))))
			require.NoError(t, repo.Save(ctx, record(3, at.Add(time.Hour))))

			records, err := repo.ListRecent(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"prd_003", "prd_009", "prd_005", "prd_002", "prd_001"}, ids(records))

			latest, err := repo.Latest(ctx)
			require.NoError(t, err)
			assert.Equal(t, "prd_003", latest.ID)

			limited, err := repo.ListRecent(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"prd_003", "prd_009"}, ids(limited))
		})
	}
}

func TestRepository_RoundTrip(t *testing.T) {
	for name, factory := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := factory(t)
			ctx := context.Background()

			_, err := repo.Latest(ctx)
			require.ErrorIs(t, err, history.ErrNoRecords)

			at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
			want := record(7, at)
			want.Prediction.AnnualSavings = 36000
			want.Prediction.CO2Offset = 3.81
			require.NoError(t, repo.Save(ctx, want))

			got, err := repo.Latest(ctx)
			require.NoError(t, err)

			assert.Equal(t, want.ID, got.ID)
			assert.True(t, at.Equal(got.CreatedAt), "created_at %s", got.CreatedAt)
			assert.Equal(t, want.Location, got.Location)
			assert.Equal(t, want.Input, got.Input)
			assert.Equal(t, want.Prediction, got.Prediction)
		})
	}
}
