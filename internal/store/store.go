// Package store holds clip state shared between the API, the crop mutation and
// the tray. It is composed of a durable video slice and a transient
// selected-video slice; only the video slice is persisted.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-clips/internal/storage"
)

// DefaultName is the storage item the snapshot is kept under.
const DefaultName = "video-storage"

const snapshotVersion = 0

var ErrNoSelection = errors.New("no video selected")

type Options struct {
	Name    string
	Backend storage.Backend
	Logger  *slog.Logger
}

type Store struct {
	mu        sync.RWMutex
	videos    videoSlice
	selection selectedVideoSlice

	persister *persister
	logger    *slog.Logger

	listenersMu sync.Mutex
	listeners   map[int]func(State)
	nextID      int
}

// New returns a store without persistence.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger, listeners: make(map[int]func(State))}
}

// Open hydrates a store from opts.Backend and persists later changes to it.
// A missing or unreadable snapshot yields an empty store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("store: backend is required")
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}

	s := New(opts.Logger)

	raw, ok, err := opts.Backend.GetItem(ctx, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.Name, err)
	}
	if ok {
		var snap snapshot
		switch err := json.Unmarshal([]byte(raw), &snap); {
		case err != nil:
			s.logger.Warn("discarding unreadable store snapshot", "name", opts.Name, "error", err)
		case snap.Version != snapshotVersion:
			s.logger.Warn("discarding store snapshot with unknown version", "name", opts.Name, "version", snap.Version)
		default:
			s.videos = snap.State
		}
	}

	s.persister = newPersister(opts.Backend, opts.Name, s.logger)
	s.logger.Info("store hydrated", "name", opts.Name, "clips", len(s.videos.CroppedVideos))
	return s, nil
}

// Flush blocks until every change made before the call has been written.
func (s *Store) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	return s.persister.flush(ctx)
}

// Close flushes pending writes and stops the writer.
func (s *Store) Close() error {
	if s.persister != nil {
		s.persister.stop()
	}
	return nil
}

// Subscribe registers fn to be called with the new state after every change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// set applies fn under the write lock. When durable is true the video slice is
// queued for persistence.
func (s *Store) set(durable bool, fn func()) {
	s.mu.Lock()
	fn()
	state := s.stateLocked()
	if durable && s.persister != nil {
		s.enqueueLocked()
	}
	s.mu.Unlock()

	s.notify(state)
}

func (s *Store) enqueueLocked() {
	data, err := json.Marshal(snapshot{State: s.videos, Version: snapshotVersion})
	if err != nil {
		s.logger.Warn("failed to encode store snapshot", "error", err)
		return
	}
	v := string(data)
	s.persister.enqueue(&v)
}

func (s *Store) notify(state State) {
	s.listenersMu.Lock()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (s *Store) stateLocked() State {
	videos := make([]CroppedVideo, len(s.videos.CroppedVideos))
	copy(videos, s.videos.CroppedVideos)

	var selected *SelectedVideo
	if s.selection.SelectedVideo != nil {
		sv := *s.selection.SelectedVideo
		selected = &sv
	}

	return State{
		CroppedVideos:    videos,
		VideoName:        s.videos.VideoName,
		VideoDescription: s.videos.VideoDescription,
		SelectedVideo:    selected,
		CropStartTime:    s.selection.CropStartTime,
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) CroppedVideos() []CroppedVideo {
	return s.State().CroppedVideos
}

func (s *Store) CroppedVideo(id string) (CroppedVideo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.videos.CroppedVideos {
		if v.ID == id {
			return v, true
		}
	}
	return CroppedVideo{}, false
}

// Metadata returns the draft name and description.
func (s *Store) Metadata() (name, description string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.videos.VideoName, s.videos.VideoDescription
}

// Selection returns the selected video and crop start, or ErrNoSelection.
func (s *Store) Selection() (SelectedVideo, time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection.SelectedVideo == nil {
		return SelectedVideo{}, 0, ErrNoSelection
	}
	return *s.selection.SelectedVideo, s.selection.CropStartTime, nil
}

// Video slice actions.

func (s *Store) AddCroppedVideo(v CroppedVideo) {
	s.set(true, func() { s.videos.add(v) })
}

// RemoveCroppedVideo deletes the clip with id and reports whether it existed.
func (s *Store) RemoveCroppedVideo(id string) bool {
	var removed bool
	s.set(true, func() { removed = s.videos.remove(id) })
	return removed
}

func (s *Store) SetVideoName(name string) {
	s.set(true, func() { s.videos.VideoName = name })
}

func (s *Store) SetVideoDescription(description string) {
	s.set(true, func() { s.videos.VideoDescription = description })
}

// CleanBoth clears the draft name and description.
func (s *Store) CleanBoth() {
	s.set(true, func() { s.videos.cleanBoth() })
}

// Selected-video slice actions. None of these touch storage.

func (s *Store) SetSelectedVideo(v SelectedVideo) {
	s.set(false, func() { s.selection.SelectedVideo = &v })
}

func (s *Store) SetCropStartTime(d time.Duration) {
	s.set(false, func() { s.selection.CropStartTime = d })
}

func (s *Store) CleanSelectedVideo() {
	s.set(false, func() { s.selection.clean() })
}

// Clear empties the whole store and removes the persisted snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	s.videos = videoSlice{}
	s.selection.clean()
	state := s.stateLocked()
	if s.persister != nil {
		s.persister.enqueue(nil)
	}
	s.mu.Unlock()

	s.notify(state)
}
