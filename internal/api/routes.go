package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/heimdex/heimdex-clips/internal/config"
	"github.com/heimdex/heimdex-clips/internal/crop"
	"github.com/heimdex/heimdex-clips/internal/events"
	"github.com/heimdex/heimdex-clips/internal/export"
	"github.com/heimdex/heimdex-clips/internal/ffmpeg"
	"github.com/heimdex/heimdex-clips/internal/metadata"
	"github.com/heimdex/heimdex-clips/internal/store"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/clips", listClipsHandler(cfg))
		r.Delete("/clips/{id}", deleteClipHandler(cfg))

		r.Get("/selection", getSelectionHandler(cfg))
		r.Put("/selection", putSelectionHandler(cfg))
		r.Delete("/selection", deleteSelectionHandler(cfg))

		r.Get("/metadata", getMetadataHandler(cfg))
		r.Put("/metadata", putMetadataHandler(cfg))
		r.Post("/metadata/validate", validateMetadataHandler(cfg))

		r.Get("/crop", getCropHandler(cfg))
		r.Post("/crop", startCropHandler(cfg))
		r.Delete("/crop", resetCropHandler(cfg))

		r.Group(func(r chi.Router) {
			r.Use(LoopbackGuard())

			r.Get("/clips/{id}/file", clipFileHandler(cfg))
			r.Get("/clips/{id}/thumbnail", clipThumbnailHandler(cfg))
			r.Get("/events", eventsHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips := cfg.Store.CroppedVideos()
		if clips == nil {
			clips = []store.CroppedVideo{}
		}
		WriteJSON(w, http.StatusOK, ClipsResponse{Clips: clips})
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !cfg.Store.RemoveCroppedVideo(id) {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		if cfg.Events != nil {
			cfg.Events.Publish(events.Event{Type: events.TypeClipRemoved, Payload: map[string]string{"id": id}})
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clipFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		clip, ok := cfg.Store.CroppedVideo(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		if r.URL.Query().Get("download") == "1" {
			name := export.FileName(clip.Name, clip.ID, export.ExtFromURI(clip.URI))
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		}
		serveURI(cfg, w, r, id, clip.URI)
	}
}

func clipThumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		clip, ok := cfg.Store.CroppedVideo(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		if clip.Thumbnail == nil {
			WriteError(w, http.StatusNotFound, "clip has no thumbnail", "NO_THUMBNAIL")
			return
		}
		serveURI(cfg, w, r, id, *clip.Thumbnail)
	}
}

func serveURI(cfg ServerConfig, w http.ResponseWriter, r *http.Request, id, uri string) {
	if cfg.Playback == nil {
		WriteError(w, http.StatusServiceUnavailable, "playback unavailable", "UNAVAILABLE")
		return
	}
	if err := cfg.Playback.ServeFile(w, r, ffmpeg.PathFromURI(uri)); err != nil {
		cfg.Logger.Error("playback error", "error", err, "clip_id", id)
	}
}

func getSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, start, err := cfg.Store.Selection()
		if err != nil {
			WriteError(w, http.StatusNotFound, "no video selected", "NO_SELECTION")
			return
		}
		WriteJSON(w, http.StatusOK, SelectionToResponse(sel, start))
	}
}

func putSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.URI == "" {
			WriteError(w, http.StatusBadRequest, "uri is required", "BAD_REQUEST")
			return
		}
		if req.CropStartMs < 0 || req.DurationMs < 0 {
			WriteError(w, http.StatusBadRequest, "times must not be negative", "BAD_REQUEST")
			return
		}

		if req.DurationMs == 0 && cfg.Prober != nil {
			probe, err := cfg.Prober.Probe(r.Context(), ffmpeg.PathFromURI(req.URI))
			if err != nil {
				cfg.Logger.Warn("probe failed", "error", err)
			} else {
				req.DurationMs = probe.Duration.Milliseconds()
			}
		}

		sel := store.SelectedVideo{URI: req.URI, DurationMs: req.DurationMs}
		start := time.Duration(req.CropStartMs) * time.Millisecond
		cfg.Store.SetSelectedVideo(sel)
		cfg.Store.SetCropStartTime(start)

		WriteJSON(w, http.StatusOK, SelectionToResponse(sel, start))
	}
}

func deleteSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Store.CleanSelectedVideo()
		w.WriteHeader(http.StatusNoContent)
	}
}

func metadataResponse(name, description string) MetadataResponse {
	errs := metadata.Validate(metadata.Metadata{Name: name, Description: description})
	return MetadataResponse{Name: name, Description: description, Errors: errs.Map()}
}

func getMetadataHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, metadataResponse(cfg.Store.Metadata()))
	}
}

// putMetadataHandler saves the draft as typed; invalid values are kept and
// reported, the same as a form that has not been submitted yet.
func putMetadataHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MetadataRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Store.SetVideoName(req.Name)
		cfg.Store.SetVideoDescription(req.Description)

		WriteJSON(w, http.StatusOK, metadataResponse(req.Name, req.Description))
	}
}

func validateMetadataHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MetadataRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		errs := metadata.Validate(metadata.Metadata{Name: req.Name, Description: req.Description})
		WriteJSON(w, http.StatusOK, ValidateResponse{Errors: errs.Map()})
	}
}

func writeFieldErrors(w http.ResponseWriter, errs metadata.FieldErrors) {
	WriteJSON(w, http.StatusUnprocessableEntity, FieldErrorsResponse{
		Error:  "invalid metadata",
		Code:   "INVALID_METADATA",
		Errors: errs.Map(),
	})
}

func getCropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, CropStateToResponse(cfg.Mutation.State()))
	}
}

func resetCropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Mutation.IsPending() {
			WriteError(w, http.StatusConflict, crop.ErrInProgress.Error(), "CROP_IN_PROGRESS")
			return
		}
		cfg.Mutation.Reset()
		w.WriteHeader(http.StatusNoContent)
	}
}

// startCropHandler is the form submit: validate, then save the draft and
// start the crop from the current selection in one step.
func startCropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CropRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		errs := metadata.Validate(metadata.Metadata{Name: req.Name, Description: req.Description})
		if !errs.Empty() {
			writeFieldErrors(w, errs)
			return
		}

		sel, start, err := cfg.Store.Selection()
		if err != nil {
			WriteError(w, http.StatusConflict, "no video selected", "NO_SELECTION")
			return
		}

		duration := time.Duration(req.DurationMs) * time.Millisecond
		if req.DurationMs == 0 && sel.DurationMs > 0 {
			duration = time.Duration(sel.DurationMs)*time.Millisecond - start
		}

		id := req.ID
		if id == "" {
			id = uuid.NewString()
		}

		params := ffmpeg.CropParams{
			ID:        id,
			VideoURI:  sel.URI,
			StartTime: start,
			Duration:  duration,
			Region:    req.Region,
		}
		if err := params.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_PARAMS")
			return
		}

		err = cfg.Mutation.SubmitAsync(params, metadata.Metadata{Name: req.Name, Description: req.Description})
		var merr *crop.InvalidMetadataError
		switch {
		case err == nil:
		case errors.Is(err, crop.ErrInProgress):
			WriteError(w, http.StatusConflict, err.Error(), "CROP_IN_PROGRESS")
			return
		case errors.Is(err, crop.ErrDuplicateClip):
			WriteError(w, http.StatusConflict, err.Error(), "DUPLICATE_CLIP")
			return
		case errors.As(err, &merr):
			writeFieldErrors(w, merr.Errors)
			return
		case errors.Is(err, ffmpeg.ErrInvalidParams):
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_PARAMS")
			return
		default:
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, CropAcceptedResponse{ID: id, Status: string(crop.StatusPending)})
	}
}

func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Events == nil {
			WriteError(w, http.StatusServiceUnavailable, "events unavailable", "UNAVAILABLE")
			return
		}
		cfg.Events.HandleWebSocket(w, r)
	}
}
