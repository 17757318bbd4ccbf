package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Stub copies the source instead of transcoding and never makes thumbnails.
// It lets the agent run on machines without ffmpeg.
type Stub struct {
	clipsDir string
	logger   *slog.Logger
}

func NewStub(clipsDir string, logger *slog.Logger) *Stub {
	return &Stub{clipsDir: clipsDir, logger: logger}
}

func (f *Stub) Crop(ctx context.Context, p CropParams) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	f.logger.Info("ffmpeg stub: crop requested, copying source", "clip_id", p.ID)

	src, err := os.Open(PathFromURI(p.VideoURI))
	if err != nil {
		return "", fmt.Errorf("source video: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(f.clipsDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create clips dir: %w", err)
	}
	output := filepath.Join(f.clipsDir, p.ID+".mp4")
	dst, err := os.Create(output)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(output)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(output)
		return "", err
	}
	return URIFromPath(output), nil
}

func (f *Stub) GenerateThumbnail(ctx context.Context, videoURI string, frame int) (*string, error) {
	f.logger.Info("ffmpeg stub: thumbnail requested", "frame", frame)
	return nil, nil
}

func (f *Stub) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	f.logger.Info("ffmpeg stub: probe requested")
	return &ProbeResult{}, nil
}
