package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/RMahshie/sensorscope/internal/dispatch"
	"github.com/RMahshie/sensorscope/internal/export"
	"github.com/RMahshie/sensorscope/internal/render"
	"github.com/RMahshie/sensorscope/internal/repository"
	"github.com/RMahshie/sensorscope/internal/source"
	"github.com/RMahshie/sensorscope/internal/storage"
	"github.com/RMahshie/sensorscope/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ProcessingService interface {
	ProcessRecording(ctx context.Context, recordingID uuid.UUID) error
}

// Reducer turns channels into plot-ready series
type Reducer interface {
	ProcessBatch(ctx context.Context, channels []models.Channel) (dispatch.BatchResult, error)
}

// PlotEncoder draws a series as an image
type PlotEncoder interface {
	Encode(s models.ReducedSeries, w io.Writer) error
}

// Options tunes the table export of a processing run
type Options struct {
	TableFraction float64
	// NewRand returns the generator used to subsample tables. Defaults to a time-seeded PCG.
	NewRand func() *rand.Rand
}

type processingService struct {
	store      storage.ArtifactStore
	repository repository.RecordingRepository
	exporter   repository.TableExporter
	reducer    Reducer
	renderer   PlotEncoder
	opts       Options
}

func NewProcessingService(
	store storage.ArtifactStore,
	repo repository.RecordingRepository,
	exporter repository.TableExporter,
	reducer Reducer,
	renderer PlotEncoder,
	opts Options,
) ProcessingService {
	if opts.TableFraction <= 0 {
		opts.TableFraction = export.DefaultFraction
	}
	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5e75))
		}
	}
	return &processingService{
		store:      store,
		repository: repo,
		exporter:   exporter,
		reducer:    reducer,
		renderer:   renderer,
		opts:       opts,
	}
}

// ProcessRecording runs the whole pipeline for an uploaded recording. Pipeline
// failures mark the recording failed and are returned; repository errors while
// updating progress are returned as is.
func (s *processingService) ProcessRecording(ctx context.Context, recordingID uuid.UUID) error {
	logger := log.With().Str("recording_id", recordingID.String()).Logger()

	// Step 1: Update to processing status
	if err := s.repository.UpdateStatus(ctx, recordingID, models.StatusProcessing, 10); err != nil {
		return err
	}

	rec, err := s.repository.GetByID(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.ObjectKey == nil {
		return s.fail(ctx, recordingID, "Recording has not been uploaded", errors.New("no object key"))
	}

	// Step 2: Download and decode
	if err := s.repository.UpdateStatus(ctx, recordingID, models.StatusProcessing, 20); err != nil {
		return err
	}
	data, err := s.store.DownloadFile(ctx, *rec.ObjectKey)
	if err != nil {
		return s.fail(ctx, recordingID, "Failed to download recording", err)
	}

	meta := source.Metadata{
		Name:         rec.Name,
		Class:        rec.Class,
		ChannelNames: rec.ChannelNames,
		Scale:        rec.Scale,
		Unit:         rec.Unit,
	}
	if rec.StartTime != nil {
		meta.StartTime = *rec.StartTime
	}
	channels, err := source.DecodeWAV(data, meta)
	if err != nil {
		return s.fail(ctx, recordingID, "Failed to decode recording", err)
	}

	// Step 3: Reduce
	if err := s.repository.UpdateStatus(ctx, recordingID, models.StatusProcessing, 40); err != nil {
		return err
	}
	batch, err := s.reducer.ProcessBatch(ctx, channels)
	if err != nil {
		return s.fail(ctx, recordingID, "Reduction failed", err)
	}

	// Step 4: Render and upload plots
	if err := s.repository.UpdateStatus(ctx, recordingID, models.StatusProcessing, 60); err != nil {
		return err
	}
	plots := make([]models.PlotArtifact, 0, len(batch.Series))
	failures := batch.Failures
	var buf bytes.Buffer
	for _, series := range batch.Series {
		buf.Reset()
		if err := s.renderer.Encode(series, &buf); err != nil {
			if errors.Is(err, render.ErrNothingToPlot) {
				logger.Warn().Str("channel", series.Channel).Str("kind", string(series.Kind)).Msg("Nothing to plot")
				failures = append(failures, models.ChannelFailure{Channel: series.Channel, Kind: series.Kind, Error: err.Error()})
				continue
			}
			return s.fail(ctx, recordingID, "Failed to render plots", err)
		}

		key := storage.PlotKey(rec.ID, render.FileName(series))
		if err := s.store.UploadFile(ctx, key, buf.Bytes(), "image/png"); err != nil {
			return s.fail(ctx, recordingID, "Failed to upload plots", err)
		}
		plots = append(plots, models.PlotArtifact{Channel: series.Channel, Kind: series.Kind, ObjectKey: key})
	}

	// Step 5: Export the subsampled table
	if err := s.repository.UpdateStatus(ctx, recordingID, models.StatusProcessing, 80); err != nil {
		return err
	}
	table, err := export.Subsample(channels, s.opts.TableFraction, s.opts.NewRand())
	if err != nil {
		return s.fail(ctx, recordingID, "Failed to build table", err)
	}
	storeID := dispatch.StoreFor(rec.Class)
	if err := s.exporter.ExportTable(ctx, table, storeID); err != nil {
		return s.fail(ctx, recordingID, "Failed to export table", err)
	}

	// Step 6: Store results and mark complete
	if err := s.repository.UpdateStatus(ctx, recordingID, models.StatusProcessing, 90); err != nil {
		return err
	}
	results := &models.RecordingResults{
		ID:          uuid.New().String(),
		RecordingID: rec.ID,
		Plots:       plots,
		TableStore:  storeID,
		TableRows:   len(table.Rows),
		Failures:    failures,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repository.StoreResults(ctx, results); err != nil {
		return err
	}

	if err := s.repository.UpdateStatus(ctx, recordingID, models.StatusCompleted, 100); err != nil {
		return err
	}

	logger.Info().
		Int("channels", len(channels)).
		Int("plots", len(plots)).
		Int("failures", len(failures)).
		Str("table_store", storeID).
		Msg("Recording processed")

	return nil
}

func (s *processingService) fail(ctx context.Context, id uuid.UUID, msg string, cause error) error {
	log.Error().Err(cause).Str("recording_id", id.String()).Msg(msg)
	if err := s.repository.UpdateError(ctx, id, fmt.Sprintf("%s: %v", msg, cause)); err != nil {
		log.Error().Err(err).Str("recording_id", id.String()).Msg("Failed to record processing error")
	}
	return fmt.Errorf("%s: %w", msg, cause)
}
