package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RMahshie/sensorscope/internal/repository"
	"github.com/RMahshie/sensorscope/migrations"
	"github.com/RMahshie/sensorscope/pkg/models"
)

// setupDB starts PostgreSQL, applies migrations and returns a connection
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("sensorscope_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Apply(ctx, db))
	// Applying twice is a no-op
	require.NoError(t, migrations.Apply(ctx, db))

	return db
}

func TestTableName(t *testing.T) {
	name, err := TableName(models.StoreAccelerometer)
	require.NoError(t, err)
	assert.Equal(t, "acc_data", name)

	_, err = TableName("users; DROP TABLE recordings")
	assert.Error(t, err)
}

func TestCheckColumns(t *testing.T) {
	assert.NoError(t, checkColumns(models.Table{Columns: []string{"a", "b"}, Rows: []models.TableRow{{Values: []float64{1, 2}}}}))
	assert.Error(t, checkColumns(models.Table{Columns: []string{"a", "a"}}))
	assert.Error(t, checkColumns(models.Table{Columns: []string{EpochColumn}}))
	assert.Error(t, checkColumns(models.Table{Columns: []string{""}}))
	assert.Error(t, checkColumns(models.Table{Columns: []string{"a"}, Rows: []models.TableRow{{Values: []float64{1, 2}}}}))
}

func TestRecordingRepository_Integration(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewPostgresRecordingRepository(db)

	id := uuid.New()
	key := "recordings/" + id.String() + ".wav"
	start := time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC)
	now := time.Now().UTC()
	rec := &models.Recording{
		ID:           id.String(),
		Name:         "bench_acc",
		Class:        models.ClassAccelerometer,
		ChannelNames: []string{"ACC-X", "ACC-Y"},
		Scale:        10,
		Unit:         "g",
		StartTime:    &start,
		Status:       models.StatusPending,
		ObjectKey:    &key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ClassAccelerometer, got.Class)
	assert.Equal(t, []string{"ACC-X", "ACC-Y"}, got.ChannelNames)
	assert.Equal(t, key, *got.ObjectKey)
	require.NotNil(t, got.StartTime)
	assert.True(t, start.Equal(*got.StartTime))
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, repo.UpdateStatus(ctx, id, models.StatusCompleted, 100))
	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	assert.NotNil(t, got.CompletedAt)

	_, err = repo.GetResults(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	results := &models.RecordingResults{
		ID:          uuid.New().String(),
		RecordingID: id.String(),
		Plots:       []models.PlotArtifact{{Channel: "ACC-X", Kind: models.KindTime, ObjectKey: "plots/x/ACC-X-time.png"}},
		TableStore:  models.StoreAccelerometer,
		TableRows:   42,
		Failures:    []models.ChannelFailure{{Channel: "ACC-Y", Error: "too short"}},
		CreatedAt:   now,
	}
	require.NoError(t, repo.StoreResults(ctx, results))
	// Reprocessing replaces the earlier results
	results.TableRows = 43
	require.NoError(t, repo.StoreResults(ctx, results))

	stored, err := repo.GetResults(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 43, stored.TableRows)
	assert.Equal(t, results.Plots, stored.Plots)
	assert.Equal(t, results.Failures, stored.Failures)

	require.NoError(t, repo.UpdateError(ctx, id, "boom"))
	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "boom", *got.ErrorMsg)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTableExporter_Integration(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	exporter := NewPostgresTableExporter(db)

	table := models.Table{
		Columns: []string{"EH-1", "EH 2"},
		Rows: []models.TableRow{
			{EpochNs: 1000, Values: []float64{0.5, -1}},
			{EpochNs: 2000, Values: []float64{0.25, 3}},
		},
	}
	require.NoError(t, exporter.ExportTable(ctx, table, models.StoreElectromagnetic))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eh_data`).Scan(&n))
	assert.Equal(t, 2, n)

	var v float64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT "EH 2" FROM eh_data WHERE epoch_ns = 2000`).Scan(&v))
	assert.Equal(t, 3.0, v)

	// A second export replaces the table
	table.Rows = table.Rows[:1]
	require.NoError(t, exporter.ExportTable(ctx, table, models.StoreElectromagnetic))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eh_data`).Scan(&n))
	assert.Equal(t, 1, n)

	assert.Error(t, exporter.ExportTable(ctx, table, "nope"))
}
