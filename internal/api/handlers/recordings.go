package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RMahshie/sensorscope/internal/processing"
	"github.com/RMahshie/sensorscope/internal/repository"
	"github.com/RMahshie/sensorscope/internal/storage"
	"github.com/RMahshie/sensorscope/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RecordingHandler handles recording-related HTTP requests
type RecordingHandler struct {
	repo          repository.RecordingRepository
	store         storage.ArtifactStore
	processingSvc processing.ProcessingService
	// background runs processing detached from the request
	background func(func())
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(repo repository.RecordingRepository, store storage.ArtifactStore, processingSvc processing.ProcessingService) *RecordingHandler {
	return &RecordingHandler{
		repo:          repo,
		store:         store,
		processingSvc: processingSvc,
		background:    func(f func()) { go f() },
	}
}

// CreateRecording registers a recording and returns an upload URL
func (h *RecordingHandler) CreateRecording(ctx context.Context, req *models.CreateRecordingRequest) (*models.CreateRecordingResponse, error) {
	body := req.Body
	log.Info().Str("name", body.Name).Int64("fileSize", body.FileSize).Msg("Creating new recording")

	class := models.ClassFromName(body.Name)
	if body.SensorClass != "" {
		parsed, err := models.ParseSensorClass(body.SensorClass)
		if err != nil {
			return nil, huma.Error400BadRequest("Unknown sensor class", err)
		}
		class = parsed
	}

	if len(body.ChannelNames) > 0 {
		seen := map[string]bool{}
		for _, name := range body.ChannelNames {
			if strings.TrimSpace(name) == "" || seen[name] {
				return nil, huma.Error400BadRequest("Channel names must be unique and non-empty", nil)
			}
			seen[name] = true
		}
	}

	scale := body.Scale
	if scale == 0 {
		scale = 1
	}

	recordingID := uuid.New()
	key := storage.RecordingKey(recordingID.String())

	uploadURL, err := h.store.GenerateUploadURL(ctx, key, body.MimeType)
	if err != nil {
		if strings.Contains(err.Error(), "invalid content type") {
			return nil, huma.Error400BadRequest("Recording format not supported. Upload a WAV file.", err)
		}
		return nil, huma.Error400BadRequest("Failed to prepare upload. Please try again.", err)
	}

	now := time.Now().UTC()
	rec := &models.Recording{
		ID:           recordingID.String(),
		Name:         body.Name,
		Class:        class,
		ChannelNames: body.ChannelNames,
		Scale:        scale,
		Unit:         body.Unit,
		StartTime:    body.StartTime,
		Status:       models.StatusPending,
		ObjectKey:    &key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.repo.Create(ctx, rec); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create recording", err)
	}

	log.Info().Str("recordingID", rec.ID).Str("class", string(class)).Msg("Recording created, returning upload URL")
	return &models.CreateRecordingResponse{
		Body: models.CreateRecordingResponseBody{
			ID:        rec.ID,
			UploadURL: uploadURL,
			ExpiresIn: int(storage.UploadURLExpiry.Seconds()),
		},
	}, nil
}

// GetRecordingStatus returns the current status of a recording
func (h *RecordingHandler) GetRecordingStatus(ctx context.Context, req *models.GetRecordingStatusRequest) (*models.GetRecordingStatusResponse, error) {
	recordingID, rec, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	message := statusMessage(rec.Status, rec.Progress)
	if rec.Status == models.StatusFailed && rec.ErrorMsg != nil {
		message = *rec.ErrorMsg
	}

	var resultsID *string
	if rec.Status == models.StatusCompleted {
		results, err := h.repo.GetResults(ctx, recordingID)
		if err == nil && results != nil {
			resultsID = &results.ID
		}
	}

	return &models.GetRecordingStatusResponse{
		Body: models.GetRecordingStatusResponseBody{
			ID:        rec.ID,
			Status:    rec.Status,
			Progress:  rec.Progress,
			Message:   message,
			ResultsID: resultsID,
		},
	}, nil
}

// StartProcessing starts processing an uploaded recording in the background
func (h *RecordingHandler) StartProcessing(ctx context.Context, req *models.StartProcessingRequest) (*models.StartProcessingResponse, error) {
	recordingID, rec, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.StatusProcessing {
		return nil, huma.Error409Conflict("Recording is already being processed")
	}

	log.Info().Str("recordingID", rec.ID).Msg("Starting background processing")
	h.background(func() {
		// Failures are recorded on the recording by the service
		if err := h.processingSvc.ProcessRecording(context.Background(), recordingID); err != nil {
			log.Error().Err(err).Str("recordingID", recordingID.String()).Msg("Processing failed")
		}
	})

	resp := &models.StartProcessingResponse{}
	resp.Body.Message = "Processing started successfully"
	return resp, nil
}

// GetRecordingResults returns the plots and table export of a processed recording
func (h *RecordingHandler) GetRecordingResults(ctx context.Context, req *models.GetRecordingResultsRequest) (*models.GetRecordingResultsResponse, error) {
	recordingID, rec, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusCompleted {
		return nil, huma.Error409Conflict("Recording not yet processed",
			fmt.Errorf("recording status is %s", rec.Status))
	}

	results, err := h.repo.GetResults(ctx, recordingID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get results", err)
	}

	plots := make([]models.PlotArtifact, len(results.Plots))
	for i, p := range results.Plots {
		url, err := h.store.GenerateDownloadURL(ctx, p.ObjectKey)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to sign plot URL", err)
		}
		p.URL = url
		plots[i] = p
	}

	return &models.GetRecordingResultsResponse{
		Body: models.GetRecordingResultsResponseBody{
			ID:          results.ID,
			RecordingID: results.RecordingID,
			Plots:       plots,
			TableStore:  results.TableStore,
			TableRows:   results.TableRows,
			Failures:    results.Failures,
			CreatedAt:   results.CreatedAt,
		},
	}, nil
}

func (h *RecordingHandler) lookup(ctx context.Context, id string) (uuid.UUID, *models.Recording, error) {
	recordingID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, nil, huma.Error400BadRequest("Invalid recording ID", err)
	}

	rec, err := h.repo.GetByID(ctx, recordingID)
	if errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, nil, huma.Error404NotFound("Recording not found", err)
	}
	if err != nil {
		return uuid.Nil, nil, huma.Error500InternalServerError("Failed to load recording", err)
	}
	return recordingID, rec, nil
}

func statusMessage(status string, progress int) string {
	switch status {
	case models.StatusPending:
		return "Waiting for upload and processing request..."
	case models.StatusProcessing:
		switch {
		case progress < 40:
			return "Decoding recording..."
		case progress < 60:
			return "Reducing channels..."
		case progress < 80:
			return "Rendering plots..."
		default:
			return "Exporting table..."
		}
	case models.StatusCompleted:
		return "Processing complete"
	case models.StatusFailed:
		return "Processing failed"
	default:
		return "Unknown status"
	}
}
