// Package playback streams clip and thumbnail files with byte-range support
// so players can seek without downloading the whole clip.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/heimdex/heimdex-clips/internal/logging"
)

var (
	ErrOutsideRoots = errors.New("path is outside the served directories")

	errBadRange      = errors.New("malformed range header")
	errUnsatisfiable = errors.New("range not satisfiable")
)

type PlaybackService interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
}

// Server serves files that live under one of its roots. With no roots every
// path is served.
type Server struct {
	roots  []string
	logger *slog.Logger
}

func NewServer(logger *slog.Logger, roots ...string) *Server {
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		if abs, err := filepath.Abs(root); err == nil {
			cleaned = append(cleaned, abs)
		}
	}
	return &Server{roots: cleaned, logger: logger}
}

func (s *Server) allowed(path string) bool {
	if len(s.roots) == 0 {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range s.roots {
		rel, err := filepath.Rel(root, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	if !s.allowed(filePath) {
		s.logger.Warn("refusing to serve file", "path", logging.SanitizePath(filePath))
		http.Error(w, "forbidden", http.StatusForbidden)
		return ErrOutsideRoots
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	// A malformed header is ignored and the whole file is sent.
	span, err := parseByteRange(r.Header.Get("Range"), size)
	if errors.Is(err, errUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	if span == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, file)
		}
		return nil
	}

	w.Header().Set("Content-Length", strconv.FormatInt(span.length(), 10))
	w.Header().Set("Content-Range", span.contentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}

	if _, err := file.Seek(span.start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	io.CopyN(w, file, span.length())
	return nil
}

// byteRange is an inclusive span of a served file.
type byteRange struct {
	start, end int64
}

func (b byteRange) length() int64 {
	return b.end - b.start + 1
}

func (b byteRange) contentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.start, b.end, size)
}

// parseByteRange reads a "bytes=" Range header for a file of size bytes.
// It returns nil, nil when there is no header. Players seek with a single
// range, so only the first one of a list is used. An empty file has no
// satisfiable range.
func parseByteRange(header string, size int64) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, errBadRange
	}
	first, _, _ := strings.Cut(spec, ",")
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(first), "-")
	if !ok {
		return nil, errBadRange
	}

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, errBadRange
		}
		if size == 0 {
			return nil, errUnsatisfiable
		}
		return &byteRange{start: max(size-n, 0), end: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, errBadRange
	}
	end := size - 1
	if endStr != "" {
		if end, err = strconv.ParseInt(endStr, 10, 64); err != nil {
			return nil, errBadRange
		}
	}
	if start > end || start >= size {
		return nil, errUnsatisfiable
	}
	return &byteRange{start: start, end: min(end, size-1)}, nil
}
