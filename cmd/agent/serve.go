package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heimdex/heimdex-clips/internal/api"
	"github.com/heimdex/heimdex-clips/internal/config"
	"github.com/heimdex/heimdex-clips/internal/crop"
	"github.com/heimdex/heimdex-clips/internal/db"
	"github.com/heimdex/heimdex-clips/internal/events"
	"github.com/heimdex/heimdex-clips/internal/ffmpeg"
	"github.com/heimdex/heimdex-clips/internal/logging"
	"github.com/heimdex/heimdex-clips/internal/playback"
	"github.com/heimdex/heimdex-clips/internal/storage"
	"github.com/heimdex/heimdex-clips/internal/store"
	"github.com/heimdex/heimdex-clips/internal/ui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clips API (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.ClipsDir(), cfg.ThumbnailsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clips agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	authToken, err := ensureAuthToken(cmd.Context(), database)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                 HEIMDEX CLIPS v%-27s║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	videoStore, err := store.Open(cmd.Context(), store.Options{
		Name:    store.DefaultName,
		Backend: storage.NewSQLiteBackend(database.Conn()),
		Logger:  logging.WithComponent(logger, "store"),
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer videoStore.Close()

	tools := newFFmpeg(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := events.NewHub(logging.WithComponent(logger, "events"), api.IsAllowedOrigin)
	defer hub.Close()

	var tray *ui.Tray
	quitCh := make(chan struct{})
	if !cfg.Headless() {
		tray = ui.NewTray(ui.TrayConfig{
			Store:  videoStore,
			Logger: logger,
			OnOpen: func() {
				logger.Info("open requested from tray", "url", fmt.Sprintf("http://127.0.0.1:%d", cfg.Port()))
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
	}

	publishers := events.Fanout{hub}
	if tray != nil {
		publishers = append(publishers, tray)
	}

	mutation := crop.NewMutation(crop.Config{
		Cropper:     tools,
		Thumbnailer: tools,
		Store:       videoStore,
		Navigator:   hub,
		Events:      publishers,
		Timeout:     cfg.CropTimeout(),
		Context:     ctx,
		Logger:      logger,
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		Store:     videoStore,
		Mutation:  mutation,
		Prober:    tools,
		Events:    hub,
		Tokens:    database,
		Playback:  playback.NewServer(logger, cfg.ClipsDir(), cfg.ThumbnailsDir()),
		Logger:    logger,
		StartTime: startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if tray == nil {
		logger.Info("running in headless mode (no system tray)")
	} else {
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	mutation.Wait()
	if err := videoStore.Flush(shutdownCtx); err != nil {
		logger.Error("failed to flush store", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newFFmpeg picks the ffmpeg implementation. The stub copies sources as-is
// and is meant for development machines without ffmpeg.
func newFFmpeg(cfg config.Config, logger *slog.Logger) ffmpeg.FFmpeg {
	if cfg.StubFFmpeg() {
		logger.Warn("using stub ffmpeg, clips are copied without cropping")
		return ffmpeg.NewStub(cfg.ClipsDir(), logger)
	}

	tools := ffmpeg.NewExec(ffmpeg.ExecConfig{
		FFmpegPath:    cfg.FFmpegPath(),
		FFprobePath:   cfg.FFprobePath(),
		ClipsDir:      cfg.ClipsDir(),
		ThumbnailsDir: cfg.ThumbnailsDir(),
		Logger:        logging.WithComponent(logger, "ffmpeg"),
	})
	if !tools.Available() {
		logger.Warn("ffmpeg not found, crops will fail until it is installed", "path", cfg.FFmpegPath())
	}
	return tools
}

type configStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

func ensureAuthToken(ctx context.Context, repo configStore) (string, error) {
	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
