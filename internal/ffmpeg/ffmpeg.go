// Package ffmpeg wraps the ffmpeg and ffprobe executables. Crop and thumbnail
// extraction are treated as black boxes: callers hand over parameters and get a
// file URI back.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropParams describes one crop. ID names the output and must be stable for
// the clip being produced.
type CropParams struct {
	ID        string
	VideoURI  string
	StartTime time.Duration
	Duration  time.Duration
	Region    *Region
}

var ErrInvalidParams = errors.New("invalid crop params")

func (p CropParams) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidParams)
	case strings.ContainsAny(p.ID, `/\`) || p.ID == "." || p.ID == "..":
		return fmt.Errorf("%w: id %q is not a valid file name", ErrInvalidParams, p.ID)
	case strings.TrimSpace(p.VideoURI) == "":
		return fmt.Errorf("%w: video uri is required", ErrInvalidParams)
	case p.StartTime < 0:
		return fmt.Errorf("%w: start time must not be negative", ErrInvalidParams)
	case p.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidParams)
	}
	if r := p.Region; r != nil {
		if r.Width <= 0 || r.Height <= 0 || r.X < 0 || r.Y < 0 {
			return fmt.Errorf("%w: region must have a non-negative origin and positive size", ErrInvalidParams)
		}
	}
	return nil
}

// Cropper produces a new clip and returns its URI.
type Cropper interface {
	Crop(ctx context.Context, p CropParams) (string, error)
}

// Thumbnailer extracts one frame of a video. A nil URI with a nil error
// means no thumbnail could be produced.
type Thumbnailer interface {
	GenerateThumbnail(ctx context.Context, videoURI string, frame int) (*string, error)
}

type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

type FFmpeg interface {
	Cropper
	Thumbnailer
	Prober
}

type ProbeResult struct {
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
}

// PathFromURI accepts either a file:// URI or a plain path.
func PathFromURI(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func URIFromPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
