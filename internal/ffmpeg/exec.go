package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/heimdex/heimdex-clips/internal/logging"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

type ExecConfig struct {
	FFmpegPath    string
	FFprobePath   string
	ClipsDir      string
	ThumbnailsDir string
	Logger        *slog.Logger
}

// Exec runs the real binaries.
type Exec struct {
	cfg ExecConfig
}

func NewExec(cfg ExecConfig) *Exec {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Exec{cfg: cfg}
}

// Available reports whether the ffmpeg binary can be found.
func (f *Exec) Available() bool {
	_, err := exec.LookPath(f.cfg.FFmpegPath)
	return err == nil
}

func cropArgs(p CropParams, input, output string) []string {
	args := []string{
		"-y",
		"-ss", formatSeconds(p.StartTime),
		"-i", input,
		"-t", formatSeconds(p.Duration),
	}
	if r := p.Region; r != nil {
		args = append(args, "-vf", fmt.Sprintf("crop=%d:%d:%d:%d", r.Width, r.Height, r.X, r.Y))
	}
	return append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	)
}

func thumbnailArgs(input, output string, frame int) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, frame),
		"-frames:v", "1",
		"-q:v", "3",
		output,
	}
}

// Crop writes <ClipsDir>/<id>.mp4. The file only appears once ffmpeg succeeded.
func (f *Exec) Crop(ctx context.Context, p CropParams) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	input := PathFromURI(p.VideoURI)
	if _, err := os.Stat(input); err != nil {
		return "", fmt.Errorf("source video: %w", err)
	}
	if err := os.MkdirAll(f.cfg.ClipsDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create clips dir: %w", err)
	}

	output := filepath.Join(f.cfg.ClipsDir, p.ID+".mp4")
	partial := output + ".part"

	if _, err := f.run(ctx, f.cfg.FFmpegPath, cropArgs(p, input, partial)...); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("ffmpeg crop failed: %w", err)
	}
	if err := os.Rename(partial, output); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("cannot finalize clip: %w", err)
	}

	f.cfg.Logger.Info("clip cropped",
		"clip_id", p.ID,
		"start", p.StartTime,
		"duration", p.Duration,
	)
	return URIFromPath(output), nil
}

func (f *Exec) GenerateThumbnail(ctx context.Context, videoURI string, frame int) (*string, error) {
	input := PathFromURI(videoURI)
	if err := os.MkdirAll(f.cfg.ThumbnailsDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create thumbnails dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	output := filepath.Join(f.cfg.ThumbnailsDir, base+".jpg")

	if _, err := f.run(ctx, f.cfg.FFmpegPath, thumbnailArgs(input, output, frame)...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.cfg.Logger.Warn("thumbnail generation failed", "input", filepath.Base(input), "error", err)
		return nil, nil
	}

	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return nil, nil
	}

	uri := URIFromPath(output)
	return &uri, nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (f *Exec) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	out, err := f.run(ctx, f.cfg.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		PathFromURI(path),
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(out)
}

func parseProbe(data []byte) (*ProbeResult, error) {
	var po probeOutput
	if err := json.Unmarshal(data, &po); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	res := &ProbeResult{}
	if po.Format.Duration != "" {
		secs, err := strconv.ParseFloat(po.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", po.Format.Duration, err)
		}
		res.Duration = time.Duration(secs * float64(time.Second))
	}
	for _, s := range po.Streams {
		if s.CodecType == "video" {
			res.Width = s.Width
			res.Height = s.Height
			res.Codec = s.CodecName
			break
		}
	}
	return res, nil
}

func (f *Exec) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	f.cfg.Logger.Debug("running command", "bin", bin, "args", logArgs(args))

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, tail(stderr.String(), maxStderrBytes))
	}
	return stdout.Bytes(), nil
}

// logArgs joins args for logging with home directories masked.
func logArgs(args []string) string {
	masked := make([]string, len(args))
	for i, a := range args {
		masked[i] = logging.SanitizePath(a)
	}
	return strings.Join(masked, " ")
}

func tail(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}
