// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/seedkeeper/internal/autobrr"
	"github.com/autobrr/seedkeeper/internal/buildinfo"
	"github.com/autobrr/seedkeeper/internal/config"
	"github.com/autobrr/seedkeeper/internal/domain"
	"github.com/autobrr/seedkeeper/internal/metrics"
	"github.com/autobrr/seedkeeper/internal/qbittorrent"
	"github.com/autobrr/seedkeeper/internal/services/seedpolicy"
	"github.com/autobrr/seedkeeper/internal/telemetry"
)

func RunPolicyCommand(flags *rootFlags) *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the seeding policy once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags, simulate)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			plan, err := execute(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			logSummary(plan)
			return nil
		},
	}

	cmd.Flags().BoolVar(&simulate, "simulate", false, "Compute and log every action without applying it (same as SIMULATION_MODE=1)")
	return cmd
}

func RunPlanCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the decisions of a simulated run as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags, true)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			plan, err := execute(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return writePlan(cmd.OutOrStdout(), plan)
		},
	}
}

func loadConfig(flags *rootFlags, simulate bool) (*domain.Config, io.Closer, error) {
	v := config.NewViper()
	if simulate {
		v.Set(config.KeySimulation, true)
	}
	if flags.logLevel != "" {
		v.Set(config.KeyLogLevel, flags.logLevel)
	}

	cfg, err := config.Load(v, flags.configPath, buildinfo.Version)
	if err != nil {
		return nil, nil, err
	}

	closer, err := config.SetupLogging(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

// execute wires the collaborators and performs one policy run.
func execute(ctx context.Context, cfg *domain.Config) (*seedpolicy.Plan, error) {
	log.Info().
		Str("version", buildinfo.Version).
		Str("category", cfg.CategoryFilter).
		Bool("simulation", cfg.Simulation).
		Msg("Starting seedkeeper run")
	log.Debug().Interface("config", cfg.Redacted()).Msg("Loaded configuration")

	store, err := qbittorrent.NewClient(ctx, qbittorrent.Config{
		Host:          cfg.QBittorrentURL(),
		Username:      cfg.QBittorrentUsername,
		Password:      cfg.QBittorrentPassword,
		BasicUsername: cfg.QBittorrentBasicUser,
		BasicPassword: cfg.QBittorrentBasicPass,
		Timeout:       cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewClient(telemetry.Config{
		Address: cfg.PrometheusURL(),
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	manager := metrics.NewManager()
	opts := seedpolicy.Options{Recorder: manager}
	if cfg.AutobrrEnabled() {
		opts.Indexers = autobrr.NewClient(autobrr.Config{
			Host:          cfg.AutobrrURL(),
			APIKey:        cfg.AutobrrAPIKey,
			Timeout:       cfg.RequestTimeout,
			RetryAttempts: uint(max(cfg.AutobrrRetryAttempts, 1)),
			UserAgent:     buildinfo.UserAgent,
		})
	}

	plan, runErr := seedpolicy.NewService(cfg, store, tel, opts).Run(ctx)
	manager.RunFinished(time.Now(), cfg.Simulation, runErr)

	if cfg.PushgatewayURL != "" {
		if err := manager.Push(ctx, cfg.PushgatewayURL, cfg.PushgatewayJob); err != nil {
			log.Warn().Err(err).Msg("Failed to publish run metrics")
		}
	}

	return plan, runErr
}

func logSummary(plan *seedpolicy.Plan) {
	event := log.Info().
		Bool("simulation", plan.Simulation).
		Int("deleted", len(plan.Threshold.Deleted)+len(plan.Quota.Allocation.Rejected)).
		Int("forceStarted", len(plan.Threshold.ForceStarted)).
		Int("indexerChanges", len(plan.Indexers)).
		Dur("took", plan.FinishedAt.Sub(plan.StartedAt))
	if plan.Toggle != nil {
		event = event.Bool("autobrrEnabled", plan.Toggle.Enable)
	}
	event.Msg("Run finished")
}

func writePlan(w io.Writer, plan *seedpolicy.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return err
	}
	return enc.Close()
}
