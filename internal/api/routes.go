package api

import (
	"net/http"

	"github.com/RMahshie/sensorscope/internal/api/handlers"
	"github.com/RMahshie/sensorscope/internal/processing"
	"github.com/RMahshie/sensorscope/internal/repository"
	"github.com/RMahshie/sensorscope/internal/storage"
	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, store storage.ArtifactStore, recordingRepo repository.RecordingRepository, processingSvc processing.ProcessingService) {
	recordingHandler := handlers.NewRecordingHandler(recordingRepo, store, processingSvc)

	huma.Register(api, huma.Operation{
		OperationID: "createRecording",
		Method:      http.MethodPost,
		Path:        "/api/recordings",
		Summary:     "Register a recording",
		Description: "Creates a recording record and returns a pre-signed URL for uploading the WAV file",
		Tags:        []string{"Recordings"},
	}, recordingHandler.CreateRecording)

	huma.Register(api, huma.Operation{
		OperationID: "getRecordingStatus",
		Method:      http.MethodGet,
		Path:        "/api/recordings/{id}/status",
		Summary:     "Get recording status",
		Description: "Returns the processing status and progress of a recording",
		Tags:        []string{"Recordings"},
	}, recordingHandler.GetRecordingStatus)

	huma.Register(api, huma.Operation{
		OperationID: "startProcessing",
		Method:      http.MethodPost,
		Path:        "/api/recordings/{id}/process",
		Summary:     "Start processing",
		Description: "Reduces every channel of an uploaded recording, renders its plots and exports the subsampled table",
		Tags:        []string{"Recordings"},
	}, recordingHandler.StartProcessing)

	huma.Register(api, huma.Operation{
		OperationID: "getRecordingResults",
		Method:      http.MethodGet,
		Path:        "/api/recordings/{id}/results",
		Summary:     "Get recording results",
		Description: "Returns download URLs for the rendered plots and a summary of the table export",
		Tags:        []string{"Recordings"},
	}, recordingHandler.GetRecordingResults)
}
