package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/funnel_go/internal/config"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "funnelctl",
	Short:         "Marketing funnel scenario calculator",
	Long:          "Computes funnel stage volumes, ROI and unit costs from spend, CPM, CTR and stage conversion rates.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.FromEnv()
		if err != nil {
			return err
		}
		cfg = c
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
