package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RMahshie/sensorscope/internal/repository"
	"github.com/RMahshie/sensorscope/pkg/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresRecordingRepository implements RecordingRepository for PostgreSQL
type PostgresRecordingRepository struct {
	db *sql.DB
}

// NewPostgresRecordingRepository creates a new PostgreSQL recording repository
func NewPostgresRecordingRepository(db *sql.DB) repository.RecordingRepository {
	return &PostgresRecordingRepository{db: db}
}

// Create inserts a new recording
func (r *PostgresRecordingRepository) Create(ctx context.Context, rec *models.Recording) error {
	query := `
		INSERT INTO recordings (id, name, sensor_class, channel_names, scale, unit, start_time,
		                        status, progress, object_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		string(rec.Class),
		pq.Array(rec.ChannelNames),
		rec.Scale,
		rec.Unit,
		rec.StartTime,
		rec.Status,
		rec.Progress,
		rec.ObjectKey,
		rec.CreatedAt,
		rec.UpdatedAt)

	return err
}

// GetByID retrieves a recording by ID
func (r *PostgresRecordingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	query := `
		SELECT id, name, sensor_class, channel_names, scale, unit, start_time, status, progress,
		       object_key, error_message, created_at, updated_at, completed_at
		FROM recordings
		WHERE id = $1`

	var rec models.Recording
	var class string
	var objectKey, errorMsg sql.NullString
	var startTime, completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Name,
		&class,
		pq.Array(&rec.ChannelNames),
		&rec.Scale,
		&rec.Unit,
		&startTime,
		&rec.Status,
		&rec.Progress,
		&objectKey,
		&errorMsg,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recording %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rec.Class = models.SensorClass(class)
	if startTime.Valid {
		rec.StartTime = &startTime.Time
	}
	if objectKey.Valid {
		rec.ObjectKey = &objectKey.String
	}
	if errorMsg.Valid {
		rec.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}

	return &rec, nil
}

// UpdateStatus updates the status and progress of a recording
func (r *PostgresRecordingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE recordings
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, status, progress, id)
	return err
}

// UpdateError marks a recording failed with a message
func (r *PostgresRecordingRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE recordings
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, errorMsg, id)
	return err
}

// StoreResults stores processing results, replacing any earlier run
func (r *PostgresRecordingRepository) StoreResults(ctx context.Context, results *models.RecordingResults) error {
	plots, err := json.Marshal(results.Plots)
	if err != nil {
		return fmt.Errorf("failed to marshal plots: %w", err)
	}

	failures, err := json.Marshal(results.Failures)
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}

	query := `
		INSERT INTO recording_results (id, recording_id, plots, table_store, table_rows, failures, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (recording_id) DO UPDATE
		SET id = EXCLUDED.id, plots = EXCLUDED.plots, table_store = EXCLUDED.table_store,
		    table_rows = EXCLUDED.table_rows, failures = EXCLUDED.failures, created_at = EXCLUDED.created_at`

	_, err = r.db.ExecContext(ctx, query,
		results.ID,
		results.RecordingID,
		string(plots),
		results.TableStore,
		results.TableRows,
		string(failures),
		results.CreatedAt)

	return err
}

// GetResults retrieves the results of a recording
func (r *PostgresRecordingRepository) GetResults(ctx context.Context, recordingID uuid.UUID) (*models.RecordingResults, error) {
	query := `
		SELECT id, recording_id, plots, table_store, table_rows, failures, created_at
		FROM recording_results
		WHERE recording_id = $1`

	var results models.RecordingResults
	var plotsStr string
	var failuresStr sql.NullString

	err := r.db.QueryRowContext(ctx, query, recordingID).Scan(
		&results.ID,
		&results.RecordingID,
		&plotsStr,
		&results.TableStore,
		&results.TableRows,
		&failuresStr,
		&results.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("results for recording %s: %w", recordingID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(plotsStr), &results.Plots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plots: %w", err)
	}
	if failuresStr.Valid {
		if err := json.Unmarshal([]byte(failuresStr.String), &results.Failures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failures: %w", err)
		}
	}

	return &results, nil
}
