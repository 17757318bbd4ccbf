package main

import (
	"fmt"
	"log"

	"github.com/heimdex/heimdex-clips/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "clips-agent",
	Short:   "Local agent for cropping videos into named clips",
	Version: config.Version,
	Long: `clips-agent runs the clip cropping service on 127.0.0.1.

Without a subcommand it starts the service, the same as "clips-agent serve".

Examples:
  clips-agent
  clips-agent validate --name "My Clip" --description "A short clip."
  clips-agent clips`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("clips-agent %s (commit %s, built %s)\n",
		config.Version, config.GitCommit, config.BuildTime))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}
