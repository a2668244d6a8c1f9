package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/config"
	"github.com/kikiluvv/clipforge/internal/logging"
)

var (
	cfgFile     string
	verbose     bool
	jsonLogs    bool
	projectName string
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "clipforge",
	Short:         "clipforge - multi-track timeline editor and exporter",
	Long:          "Compose trimmed clips, text overlays and transitions on a timeline and export them to a single MP4.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose, jsonLogs)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./clipforge.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log JSON lines instead of console output")
	rootCmd.PersistentFlags().StringVarP(&projectName, "project", "p", "default", "project to work on")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(transitionCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(guiCmd)
	rootCmd.AddCommand(configCmd)
}
