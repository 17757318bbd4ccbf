package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/heimdex/heimdex-clips/internal/logging"
)

func TestCropParams_Validate(t *testing.T) {
	valid := CropParams{ID: "v1", VideoURI: "file:///src.mp4", Duration: time.Second}

	tests := []struct {
		name    string
		mutate  func(p *CropParams)
		wantErr bool
	}{
		{"valid", func(p *CropParams) {}, false},
		{"valid region", func(p *CropParams) { p.Region = &Region{Width: 100, Height: 100} }, false},
		{"missing id", func(p *CropParams) { p.ID = " " }, true},
		{"id with slash", func(p *CropParams) { p.ID = "../x" }, true},
		{"missing uri", func(p *CropParams) { p.VideoURI = "" }, true},
		{"negative start", func(p *CropParams) { p.StartTime = -time.Second }, true},
		{"zero duration", func(p *CropParams) { p.Duration = 0 }, true},
		{"empty region", func(p *CropParams) { p.Region = &Region{} }, true},
		{"negative origin", func(p *CropParams) { p.Region = &Region{X: -1, Width: 1, Height: 1} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("error %v does not wrap ErrInvalidParams", err)
			}
		})
	}
}

func TestCropArgs(t *testing.T) {
	p := CropParams{
		ID:        "v1",
		StartTime: 1500 * time.Millisecond,
		Duration:  5 * time.Second,
		Region:    &Region{X: 10, Y: 20, Width: 640, Height: 360},
	}

	got := cropArgs(p, "/in.mov", "/out.mp4.part")
	want := []string{
		"-y", "-ss", "1.500", "-i", "/in.mov", "-t", "5.000",
		"-vf", "crop=640:360:10:20",
		"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac",
		"-movflags", "+faststart", "-f", "mp4", "/out.mp4.part",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cropArgs() =\n%v\nwant\n%v", got, want)
	}

	p.Region = nil
	for _, a := range cropArgs(p, "/in.mov", "/out") {
		if a == "-vf" {
			t.Error("cropArgs() without region should not add a filter")
		}
	}
}

func TestThumbnailArgs(t *testing.T) {
	got := strings.Join(thumbnailArgs("/clip.mp4", "/clip.jpg", 0), " ")
	want := `-y -i /clip.mp4 -vf select=eq(n\,0) -frames:v 1 -q:v 3 /clip.jpg`
	if got != want {
		t.Errorf("thumbnailArgs() = %q, want %q", got, want)
	}
}

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080}
		],
		"format": {"duration": "12.500000"}
	}`)

	res, err := parseProbe(data)
	if err != nil {
		t.Fatalf("parseProbe() error = %v", err)
	}
	if res.Duration != 12500*time.Millisecond {
		t.Errorf("Duration = %v, want 12.5s", res.Duration)
	}
	if res.Width != 1920 || res.Height != 1080 || res.Codec != "h264" {
		t.Errorf("video stream = %+v", res)
	}

	if _, err := parseProbe([]byte(`{"format":{"duration":"abc"}}`)); err == nil {
		t.Error("parseProbe() with bad duration should fail")
	}
	if _, err := parseProbe([]byte(`not json`)); err == nil {
		t.Error("parseProbe() with bad JSON should fail")
	}
}

func TestURIHelpers(t *testing.T) {
	if got := PathFromURI("file:///tmp/a.mp4"); got != "/tmp/a.mp4" {
		t.Errorf("PathFromURI() = %q", got)
	}
	if got := PathFromURI("/tmp/a.mp4"); got != "/tmp/a.mp4" {
		t.Errorf("PathFromURI(plain) = %q", got)
	}
	if runtime.GOOS != "windows" {
		if got := URIFromPath("/tmp/a.mp4"); got != "file:///tmp/a.mp4" {
			t.Errorf("URIFromPath() = %q", got)
		}
	}
}

// fakeBinary writes a shell script that runs body with "$out" set to the last argument.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	script := "#!/bin/sh\nfor a; do out=$a; done\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestExec(t *testing.T, bin string) (*Exec, string) {
	dir := t.TempDir()
	return NewExec(ExecConfig{
		FFmpegPath:    bin,
		ClipsDir:      filepath.Join(dir, "clips"),
		ThumbnailsDir: filepath.Join(dir, "thumbnails"),
		Logger:        logging.Discard(),
	}), dir
}

func writeSource(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src.mov")
	if err := os.WriteFile(src, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	return src
}

func TestExec_Crop(t *testing.T) {
	f, dir := newTestExec(t, fakeBinary(t, `echo clip > "$out"`))
	src := writeSource(t)

	uri, err := f.Crop(context.Background(), CropParams{ID: "v1", VideoURI: URIFromPath(src), Duration: time.Second})
	if err != nil {
		t.Fatalf("Crop() error = %v", err)
	}

	want := filepath.Join(dir, "clips", "v1.mp4")
	if PathFromURI(uri) != want {
		t.Errorf("Crop() uri = %q, want path %q", uri, want)
	}
	if _, err := os.Stat(want + ".part"); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestExec_CropFailure(t *testing.T) {
	f, dir := newTestExec(t, fakeBinary(t, `echo "Invalid data found" >&2; exit 1`))
	src := writeSource(t)

	_, err := f.Crop(context.Background(), CropParams{ID: "v1", VideoURI: src, Duration: time.Second})
	if err == nil {
		t.Fatal("Crop() should fail when ffmpeg exits non-zero")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("error should carry stderr tail, got %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "clips"))
	if len(entries) != 0 {
		t.Errorf("clips dir should be empty after failure, has %d entries", len(entries))
	}
}

func TestExec_CropMissingSource(t *testing.T) {
	f, _ := newTestExec(t, fakeBinary(t, `exit 0`))

	_, err := f.Crop(context.Background(), CropParams{ID: "v1", VideoURI: "/does/not/exist.mp4", Duration: time.Second})
	if err == nil {
		t.Fatal("Crop() should fail for a missing source")
	}
}

func TestExec_GenerateThumbnail(t *testing.T) {
	f, dir := newTestExec(t, fakeBinary(t, `echo jpg > "$out"`))

	uri, err := f.GenerateThumbnail(context.Background(), "file:///clips/v1.mp4", 0)
	if err != nil {
		t.Fatalf("GenerateThumbnail() error = %v", err)
	}
	if uri == nil {
		t.Fatal("GenerateThumbnail() = nil, want a URI")
	}
	if want := filepath.Join(dir, "thumbnails", "v1.jpg"); PathFromURI(*uri) != want {
		t.Errorf("thumbnail path = %q, want %q", PathFromURI(*uri), want)
	}
}

func TestExec_GenerateThumbnailAbsent(t *testing.T) {
	for name, body := range map[string]string{
		"ffmpeg fails":   `exit 1`,
		"no frame found": `exit 0`,
	} {
		t.Run(name, func(t *testing.T) {
			f, _ := newTestExec(t, fakeBinary(t, body))

			uri, err := f.GenerateThumbnail(context.Background(), "/clips/v1.mp4", 0)
			if err != nil {
				t.Fatalf("GenerateThumbnail() error = %v, want nil", err)
			}
			if uri != nil {
				t.Errorf("GenerateThumbnail() = %q, want nil", *uri)
			}
		})
	}
}

func TestStub_CropCopiesSource(t *testing.T) {
	dir := t.TempDir()
	f := NewStub(dir, logging.Discard())
	src := writeSource(t)

	uri, err := f.Crop(context.Background(), CropParams{ID: "v1", VideoURI: src, Duration: time.Second})
	if err != nil {
		t.Fatalf("Crop() error = %v", err)
	}
	data, err := os.ReadFile(PathFromURI(uri))
	if err != nil || string(data) != "video" {
		t.Errorf("copied clip = %q, %v", data, err)
	}

	thumb, err := f.GenerateThumbnail(context.Background(), uri, 0)
	if err != nil || thumb != nil {
		t.Errorf("stub thumbnail = %v, %v; want nil, nil", thumb, err)
	}
}

func TestLogArgs_MasksHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	src := filepath.Join(home, "Movies", "trip.mp4")

	got := logArgs(thumbnailArgs(src, "/tmp/v1.jpg", 0))

	if strings.Contains(got, home) {
		t.Errorf("logArgs() = %q, home directory not masked", got)
	}
	if !strings.Contains(got, "~"+string(filepath.Separator)+filepath.Join("Movies", "trip.mp4")) {
		t.Errorf("logArgs() = %q, want masked source path", got)
	}
}
