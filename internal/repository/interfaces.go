package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/sensorscope/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a recording or its results do not exist
var ErrNotFound = errors.New("not found")

// RecordingRepository defines the interface for recording data operations
type RecordingRepository interface {
	Create(ctx context.Context, recording *models.Recording) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	StoreResults(ctx context.Context, results *models.RecordingResults) error
	GetResults(ctx context.Context, recordingID uuid.UUID) (*models.RecordingResults, error)
}

// TableExporter writes subsampled channel tables to the analytical store
type TableExporter interface {
	// ExportTable replaces the contents of the store identified by storeID
	ExportTable(ctx context.Context, table models.Table, storeID string) error
}
