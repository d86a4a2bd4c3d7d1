// Package mocks holds testify mocks of the repository and storage interfaces.
package mocks

import (
	"context"

	"github.com/RMahshie/sensorscope/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// RecordingRepository implements repository.RecordingRepository for testing
type RecordingRepository struct {
	mock.Mock
}

func (m *RecordingRepository) Create(ctx context.Context, rec *models.Recording) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *RecordingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*models.Recording)
	return rec, args.Error(1)
}

func (m *RecordingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	args := m.Called(ctx, id, status, progress)
	return args.Error(0)
}

func (m *RecordingRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	args := m.Called(ctx, id, errorMsg)
	return args.Error(0)
}

func (m *RecordingRepository) StoreResults(ctx context.Context, results *models.RecordingResults) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}

func (m *RecordingRepository) GetResults(ctx context.Context, recordingID uuid.UUID) (*models.RecordingResults, error) {
	args := m.Called(ctx, recordingID)
	res, _ := args.Get(0).(*models.RecordingResults)
	return res, args.Error(1)
}

// TableExporter implements repository.TableExporter for testing
type TableExporter struct {
	mock.Mock
}

func (m *TableExporter) ExportTable(ctx context.Context, table models.Table, storeID string) error {
	args := m.Called(ctx, table, storeID)
	return args.Error(0)
}

// ArtifactStore implements storage.ArtifactStore for testing
type ArtifactStore struct {
	mock.Mock
}

func (m *ArtifactStore) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *ArtifactStore) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *ArtifactStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *ArtifactStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *ArtifactStore) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// ProcessingService implements processing.ProcessingService for testing
type ProcessingService struct {
	mock.Mock
}

func (m *ProcessingService) ProcessRecording(ctx context.Context, recordingID uuid.UUID) error {
	args := m.Called(ctx, recordingID)
	return args.Error(0)
}
