package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/heimdex/heimdex-clips/internal/config"
	"github.com/heimdex/heimdex-clips/internal/db"
	"github.com/heimdex/heimdex-clips/internal/logging"
	"github.com/heimdex/heimdex-clips/internal/storage"
	"github.com/heimdex/heimdex-clips/internal/store"
	"github.com/spf13/cobra"
)

var clipsCmd = &cobra.Command{
	Use:   "clips",
	Short: "List saved clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		database, err := db.New(cfg.DBPath(), logging.Discard())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		return listClips(cmd.Context(), cmd.OutOrStdout(), storage.NewSQLiteBackend(database.Conn()))
	},
}

func init() {
	rootCmd.AddCommand(clipsCmd)
}

func listClips(ctx context.Context, w io.Writer, backend storage.Backend) error {
	s, err := store.Open(ctx, store.Options{Backend: backend, Logger: logging.Discard()})
	if err != nil {
		return err
	}
	defer s.Close()

	clips := s.CroppedVideos()
	if len(clips) == 0 {
		_, err := fmt.Fprintln(w, "no clips saved")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTHUMBNAIL\tURI")
	for _, c := range clips {
		thumb := "-"
		if c.Thumbnail != nil {
			thumb = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, thumb, c.URI)
	}
	return tw.Flush()
}
