// Package config provides configuration management for the clips agent.
// Configuration is loaded from environment variables with sensible defaults.
// A .env file in the working directory, if present, is applied first.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort        = 8788
	DefaultLogLevel    = "info"
	DefaultDataDir     = ".heimdex-clips"
	DefaultFFmpeg      = "ffmpeg"
	DefaultFFprobe     = "ffprobe"
	DefaultCropTimeout = 10 * time.Minute

	// Environment variable names
	EnvPort        = "CLIPS_PORT"
	EnvLogLevel    = "CLIPS_LOG_LEVEL"
	EnvDataDir     = "CLIPS_DATA_DIR"
	EnvFFmpeg      = "CLIPS_FFMPEG"
	EnvFFprobe     = "CLIPS_FFPROBE"
	EnvCropTimeout = "CLIPS_CROP_TIMEOUT"
	EnvHeadless    = "CLIPS_HEADLESS"
	EnvStubFFmpeg  = "CLIPS_STUB_FFMPEG"

	// Database filename
	DBFilename = "clips.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ClipsDir() string
	ThumbnailsDir() string
	FFmpegPath() string
	FFprobePath() string
	CropTimeout() time.Duration
	Headless() bool
	StubFFmpeg() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port        int
	logLevel    string
	dataDir     string
	ffmpeg      string
	ffprobe     string
	cropTimeout time.Duration
	headless    bool
	stubFFmpeg  bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:        DefaultPort,
		logLevel:    DefaultLogLevel,
		dataDir:     defaultDataDir(),
		ffmpeg:      DefaultFFmpeg,
		ffprobe:     DefaultFFprobe,
		cropTimeout: DefaultCropTimeout,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if f := os.Getenv(EnvFFmpeg); f != "" {
		cfg.ffmpeg = f
	}
	if f := os.Getenv(EnvFFprobe); f != "" {
		cfg.ffprobe = f
	}

	if ct := os.Getenv(EnvCropTimeout); ct != "" {
		d, err := time.ParseDuration(ct)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCropTimeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvCropTimeout)
		}
		cfg.cropTimeout = d
	}

	var err error
	if cfg.headless, err = envBool(EnvHeadless); err != nil {
		return nil, err
	}
	if cfg.stubFFmpeg, err = envBool(EnvStubFFmpeg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ClipsDir is where cropped clips are written.
func (c *EnvConfig) ClipsDir() string {
	return filepath.Join(c.dataDir, "clips")
}

func (c *EnvConfig) ThumbnailsDir() string {
	return filepath.Join(c.dataDir, "thumbnails")
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpeg
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobe
}

func (c *EnvConfig) CropTimeout() time.Duration {
	return c.cropTimeout
}

// Headless disables the system tray.
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) StubFFmpeg() bool {
	return c.stubFFmpeg
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
