package api

import (
	"time"

	"github.com/heimdex/heimdex-clips/internal/crop"
	"github.com/heimdex/heimdex-clips/internal/ffmpeg"
	"github.com/heimdex/heimdex-clips/internal/store"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FieldErrorsResponse is the 422 body for metadata that failed validation.
type FieldErrorsResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Errors map[string]string `json:"errors"`
}

type ClipsResponse struct {
	Clips []store.CroppedVideo `json:"clips"`
}

type SelectionRequest struct {
	URI         string `json:"uri"`
	CropStartMs int64  `json:"crop_start_ms"`
	DurationMs  int64  `json:"duration_ms,omitempty"`
}

type SelectionResponse struct {
	URI         string `json:"uri"`
	DurationMs  int64  `json:"duration_ms"`
	CropStartMs int64  `json:"crop_start_ms"`
}

type MetadataRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type MetadataResponse struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Errors      map[string]string `json:"errors"`
}

type ValidateResponse struct {
	Errors map[string]string `json:"errors"`
}

type CropRequest struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	DurationMs  int64          `json:"duration_ms"`
	Region      *ffmpeg.Region `json:"region,omitempty"`
}

type CropAcceptedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type CropParamsResponse struct {
	ID          string         `json:"id"`
	VideoURI    string         `json:"video_uri"`
	StartTimeMs int64          `json:"start_time_ms"`
	DurationMs  int64          `json:"duration_ms"`
	Region      *ffmpeg.Region `json:"region,omitempty"`
}

type CropStateResponse struct {
	Status     string              `json:"status"`
	Variables  *CropParamsResponse `json:"variables,omitempty"`
	Data       *crop.Result        `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
	StartedAt  string              `json:"started_at,omitempty"`
	FinishedAt string              `json:"finished_at,omitempty"`
}

func SelectionToResponse(v store.SelectedVideo, start time.Duration) SelectionResponse {
	return SelectionResponse{
		URI:         v.URI,
		DurationMs:  v.DurationMs,
		CropStartMs: start.Milliseconds(),
	}
}

func CropStateToResponse(s crop.State) CropStateResponse {
	resp := CropStateResponse{
		Status: string(s.Status),
		Data:   s.Data,
	}
	if p := s.Variables; p != nil {
		resp.Variables = &CropParamsResponse{
			ID:          p.ID,
			VideoURI:    p.VideoURI,
			StartTimeMs: p.StartTime.Milliseconds(),
			DurationMs:  p.Duration.Milliseconds(),
			Region:      p.Region,
		}
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	if !s.StartedAt.IsZero() {
		resp.StartedAt = s.StartedAt.Format(time.RFC3339)
	}
	if !s.FinishedAt.IsZero() {
		resp.FinishedAt = s.FinishedAt.Format(time.RFC3339)
	}
	return resp
}
