// Package crop runs the crop mutation: crop the selected video, extract a
// thumbnail from the result and, only when both succeed, save the clip.
package crop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/heimdex/heimdex-clips/internal/events"
	"github.com/heimdex/heimdex-clips/internal/ffmpeg"
	"github.com/heimdex/heimdex-clips/internal/logging"
	"github.com/heimdex/heimdex-clips/internal/metadata"
	"github.com/heimdex/heimdex-clips/internal/store"
)

var (
	ErrInProgress    = errors.New("a crop is already in progress")
	ErrDuplicateClip = errors.New("clip id already exists")
)

// InvalidMetadataError is returned when the draft metadata fails validation.
type InvalidMetadataError struct {
	Errors metadata.FieldErrors
}

func (e *InvalidMetadataError) Error() string {
	return fmt.Sprintf("invalid metadata: %v", e.Errors.Map())
}

type Navigator interface {
	DismissAll()
}

type NavigatorFunc func()

func (f NavigatorFunc) DismissAll() { f() }

type Publisher interface {
	Publish(ev events.Event)
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type Result struct {
	OutputURI    string             `json:"output_uri"`
	ThumbnailURI *string            `json:"thumbnail_uri"`
	Video        store.CroppedVideo `json:"video"`
}

// State is the observable state of the last (or current) run.
type State struct {
	Status     Status
	Variables  *ffmpeg.CropParams
	Data       *Result
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

type Config struct {
	Cropper     ffmpeg.Cropper
	Thumbnailer ffmpeg.Thumbnailer
	Store       *store.Store
	Navigator   Navigator
	Events      Publisher
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
	// Context is the parent of background runs; cancelling it aborts them.
	Context context.Context
	Logger  *slog.Logger
}

type Mutation struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	state State
	wg    sync.WaitGroup
}

func NewMutation(cfg Config) *Mutation {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Navigator == nil {
		cfg.Navigator = NavigatorFunc(func() {})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Mutation{
		cfg:    cfg,
		logger: logging.WithComponent(cfg.Logger, "crop"),
		state:  State{Status: StatusIdle},
	}
}

func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mutation) IsPending() bool {
	return m.State().Status == StatusPending
}

// Reset returns a finished mutation to idle. It is a no-op while pending.
func (m *Mutation) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != StatusPending {
		m.state = State{Status: StatusIdle}
	}
}

// Mutate runs the crop and blocks until it finishes.
func (m *Mutation) Mutate(ctx context.Context, p ffmpeg.CropParams) (*Result, error) {
	if err := m.begin(p, nil); err != nil {
		return nil, err
	}
	res, err := m.execute(ctx, p)
	return m.finish(p, res, err)
}

// MutateAsync starts the crop in the background. Errors returned here mean the
// run was never started; run failures are reported through State.
func (m *Mutation) MutateAsync(p ffmpeg.CropParams) error {
	return m.start(p, nil)
}

// SubmitAsync saves draft as the store's metadata and starts the crop, the
// way the form submit does. The draft is written only once this run has
// claimed the mutation, so a rejected submit leaves a running crop's metadata alone.
func (m *Mutation) SubmitAsync(p ffmpeg.CropParams, draft metadata.Metadata) error {
	return m.start(p, &draft)
}

func (m *Mutation) start(p ffmpeg.CropParams, draft *metadata.Metadata) error {
	if err := m.begin(p, draft); err != nil {
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		res, err := m.execute(m.cfg.Context, p)
		m.finish(p, res, err)
	}()
	return nil
}

// Wait blocks until background runs have finished.
func (m *Mutation) Wait() {
	m.wg.Wait()
}

func (m *Mutation) begin(p ffmpeg.CropParams, draft *metadata.Metadata) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if draft != nil {
		if errs := metadata.Validate(*draft); !errs.Empty() {
			return &InvalidMetadataError{Errors: errs}
		}
	}

	// Claiming the run, checking the store and saving the draft happen under
	// one lock so concurrent submits cannot interleave.
	m.mu.Lock()
	if m.state.Status == StatusPending {
		m.mu.Unlock()
		return ErrInProgress
	}
	if _, exists := m.cfg.Store.CroppedVideo(p.ID); exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateClip, p.ID)
	}
	if draft != nil {
		m.cfg.Store.SetVideoName(draft.Name)
		m.cfg.Store.SetVideoDescription(draft.Description)
	} else {
		name, description := m.cfg.Store.Metadata()
		if errs := metadata.Validate(metadata.Metadata{Name: name, Description: description}); !errs.Empty() {
			m.mu.Unlock()
			return &InvalidMetadataError{Errors: errs}
		}
	}
	vars := p
	m.state = State{Status: StatusPending, Variables: &vars, StartedAt: time.Now()}
	m.mu.Unlock()

	logging.WithClipID(m.logger, p.ID).Info("crop started", "start", p.StartTime, "duration", p.Duration)
	m.publish(events.Event{Type: events.TypeCropStarted, Payload: map[string]string{"id": p.ID}})
	return nil
}

func (m *Mutation) execute(ctx context.Context, p ffmpeg.CropParams) (*Result, error) {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	outputURI, err := m.cfg.Cropper.Crop(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("crop video: %w", err)
	}

	thumbnailURI, err := m.cfg.Thumbnailer.GenerateThumbnail(ctx, outputURI, 0)
	if err != nil {
		return nil, fmt.Errorf("generate thumbnail: %w", err)
	}

	return &Result{OutputURI: outputURI, ThumbnailURI: thumbnailURI}, nil
}

func (m *Mutation) finish(p ffmpeg.CropParams, res *Result, err error) (*Result, error) {
	if err == nil {
		res, err = m.onSuccess(p, res)
	}
	if err != nil {
		m.onError(p, err)
		return nil, err
	}
	return res, nil
}

func (m *Mutation) onSuccess(p ffmpeg.CropParams, res *Result) (*Result, error) {
	// Metadata is read now, not when the run started.
	name, description := m.cfg.Store.Metadata()
	if errs := metadata.Validate(metadata.Metadata{Name: name, Description: description}); !errs.Empty() {
		m.discardOutputs(p.ID, res)
		return nil, &InvalidMetadataError{Errors: errs}
	}

	video := store.CroppedVideo{
		ID:          p.ID,
		URI:         res.OutputURI,
		Thumbnail:   res.ThumbnailURI,
		Name:        name,
		Description: description,
	}
	res.Video = video

	m.cfg.Store.AddCroppedVideo(video)
	m.cfg.Navigator.DismissAll()
	m.cfg.Store.CleanSelectedVideo()
	m.cfg.Store.CleanBoth()

	m.mu.Lock()
	m.state.Status = StatusSuccess
	m.state.Data = res
	m.state.FinishedAt = time.Now()
	m.mu.Unlock()

	logging.WithClipID(m.logger, p.ID).Info("clip saved", "has_thumbnail", res.ThumbnailURI != nil)
	m.publish(events.Event{Type: events.TypeClipAdded, Payload: video})
	return res, nil
}

func (m *Mutation) onError(p ffmpeg.CropParams, err error) {
	logging.WithClipID(m.logger, p.ID).Error("video cropping process error", "error", err)

	m.mu.Lock()
	m.state.Status = StatusError
	m.state.Err = err
	m.state.FinishedAt = time.Now()
	m.mu.Unlock()

	m.publish(events.Event{Type: events.TypeCropFailed, Payload: map[string]string{
		"id":    p.ID,
		"error": err.Error(),
	}})
}

// discardOutputs removes files produced by a run that will not be saved.
func (m *Mutation) discardOutputs(id string, res *Result) {
	uris := []string{res.OutputURI}
	if res.ThumbnailURI != nil {
		uris = append(uris, *res.ThumbnailURI)
	}
	logger := logging.WithClipID(m.logger, id)
	for _, uri := range uris {
		path := ffmpeg.PathFromURI(uri)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove unsaved crop output", "path", logging.SanitizePath(path), "error", err)
			continue
		}
		logger.Info("removed unsaved crop output", "path", logging.SanitizePath(path))
	}
}

func (m *Mutation) publish(ev events.Event) {
	if m.cfg.Events != nil {
		m.cfg.Events.Publish(ev)
	}
}
