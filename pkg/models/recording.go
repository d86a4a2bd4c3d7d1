package models

import (
	"time"
)

// Recording statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// CreateRecordingRequestBody is the body of a create recording request
type CreateRecordingRequestBody struct {
	Name         string     `json:"name" minLength:"1" maxLength:"200" required:"true" doc:"Recording name, used as the plot title prefix"`
	SensorClass  string     `json:"sensor_class,omitempty" enum:"generic,thermocouple,accelerometer,electromagnetic" required:"false" doc:"Instrument class of every channel; defaults to the _th, _acc or _eh tag in the name"`
	FileSize     int64      `json:"file_size" minimum:"44" maximum:"536870912" required:"true" doc:"Recording size in bytes"`
	MimeType     string     `json:"mime_type" enum:"audio/wav,audio/x-wav,audio/wave" required:"true" doc:"Recording container MIME type"`
	StartTime    *time.Time `json:"start_time,omitempty" doc:"Timestamp of the first sample"`
	ChannelNames []string   `json:"channel_names,omitempty" maxItems:"2" doc:"Channel names in container order"`
	Scale        float64    `json:"scale,omitempty" doc:"Multiplier from normalized samples to physical units"`
	Unit         string     `json:"unit,omitempty" maxLength:"20" doc:"Physical unit of the scaled samples"`
}

// CreateRecordingRequest represents a request to register a new recording
type CreateRecordingRequest struct {
	Body CreateRecordingRequestBody
}

// CreateRecordingResponseBody is the body of the create recording response
type CreateRecordingResponseBody struct {
	ID        string `json:"id" doc:"Recording unique identifier"`
	UploadURL string `json:"upload_url" doc:"Pre-signed URL for uploading the recording"`
	ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
}

// CreateRecordingResponse represents the response from registering a recording
type CreateRecordingResponse struct {
	Body CreateRecordingResponseBody
}

// GetRecordingStatusRequest represents a request to get processing status
type GetRecordingStatusRequest struct {
	ID string `path:"id" doc:"Recording ID"`
}

// GetRecordingStatusResponseBody is the body of the status response
type GetRecordingStatusResponseBody struct {
	ID        string  `json:"id" doc:"Recording ID"`
	Status    string  `json:"status" enum:"pending,processing,completed,failed" doc:"Processing status"`
	Progress  int     `json:"progress" minimum:"0" maximum:"100" doc:"Processing progress percentage"`
	Message   string  `json:"message,omitempty" doc:"Human-readable status message"`
	ResultsID *string `json:"results_id,omitempty" doc:"Results ID when processing completes"`
}

// GetRecordingStatusResponse represents the current status of a recording
type GetRecordingStatusResponse struct {
	Body GetRecordingStatusResponseBody
}

// StartProcessingRequest represents a request to start processing an uploaded recording
type StartProcessingRequest struct {
	ID string `path:"id" doc:"Recording ID"`
}

// StartProcessingResponse represents the response from starting processing
type StartProcessingResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}

// GetRecordingResultsRequest represents a request to get processing results
type GetRecordingResultsRequest struct {
	ID string `path:"id" doc:"Recording ID"`
}

// GetRecordingResultsResponseBody is the body of the results response
type GetRecordingResultsResponseBody struct {
	ID          string           `json:"id" doc:"Results ID"`
	RecordingID string           `json:"recording_id" doc:"Recording ID"`
	Plots       []PlotArtifact   `json:"plots" doc:"Rendered plots with download URLs"`
	TableStore  string           `json:"table_store" doc:"Analytical store the subsampled table was written to"`
	TableRows   int              `json:"table_rows" doc:"Number of exported table rows"`
	Failures    []ChannelFailure `json:"failures,omitempty" doc:"Channels that could not be reduced"`
	CreatedAt   time.Time        `json:"created_at" doc:"Results creation timestamp"`
}

// GetRecordingResultsResponse represents the complete processing results
type GetRecordingResultsResponse struct {
	Body GetRecordingResultsResponseBody
}

// Recording represents an uploaded multi-channel recording (for internal use)
type Recording struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Class        SensorClass `json:"sensor_class"`
	ChannelNames []string    `json:"channel_names,omitempty"`
	Scale        float64     `json:"scale,omitempty"`
	Unit         string      `json:"unit,omitempty"`
	StartTime    *time.Time  `json:"start_time,omitempty"`
	Status       string      `json:"status"`
	Progress     int         `json:"progress"`
	ObjectKey    *string     `json:"object_key,omitempty"`
	ErrorMsg     *string     `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// PlotArtifact is one rendered chart stored in the artifact store
type PlotArtifact struct {
	Channel   string     `json:"channel" doc:"Channel name"`
	Kind      SeriesKind `json:"kind" enum:"time,frequency" doc:"Plot axis kind"`
	ObjectKey string     `json:"object_key" doc:"Artifact store key"`
	URL       string     `json:"url,omitempty" doc:"Pre-signed download URL"`
}

// ChannelFailure records a channel, or one plot of it, that a batch skipped.
// Kind is empty when the whole channel failed.
type ChannelFailure struct {
	Channel string     `json:"channel" doc:"Channel name"`
	Kind    SeriesKind `json:"kind,omitempty" doc:"Plot that could not be produced, empty for the whole channel"`
	Error   string     `json:"error" doc:"Why the channel was skipped"`
}

// RecordingResults represents the stored processing results
type RecordingResults struct {
	ID          string           `json:"id"`
	RecordingID string           `json:"recording_id"`
	Plots       []PlotArtifact   `json:"plots"`
	TableStore  string           `json:"table_store"`
	TableRows   int              `json:"table_rows"`
	Failures    []ChannelFailure `json:"failures,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
