package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/denisok6893-rgb/buybox-recommender/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "buybox",
		Short:         "Buy-box property recommendations and preference convergence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config.yaml or $CONFIG_PATH)")

	cmd.AddCommand(
		newServeCommand(&configPath),
		newWeeklyCommand(&configPath),
		newConvergeCommand(&configPath),
	)
	return cmd
}
