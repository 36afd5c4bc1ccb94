// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/seedkeeper/internal/buildinfo"
)

const configHelp = `Configuration is read from the environment (QBITTORRENT_HOST, PROMETHEUS_HOST,
AUTOBRR_HOST, MAX_TORRENTS_SIZE_BYTES, ...) and optionally from a TOML file
given with --config. Environment variables win over the file.`

type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("seedkeeper failed")
		stop()
		os.Exit(1)
	}
}

// NewRootCommand builds the seedkeeper command tree. Without a subcommand it
// performs a single policy run.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "seedkeeper",
		Short:         "Seeding policy controller for qBittorrent and autobrr",
		Long:          "seedkeeper deletes underperforming torrents of a category, keeps the category within its size budget and switches autobrr indexers on or off.\n\n" + configHelp,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to an optional TOML config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override LOG_LEVEL (trace, debug, info, warn, error)")

	runCmd := RunPolicyCommand(flags)
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())

	rootCmd.AddCommand(runCmd, RunPlanCommand(flags), RunVersionCommand())
	return rootCmd
}
