// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package seedpolicy decides which torrents of a category keep seeding, which
// are deleted and whether autobrr indexers should keep feeding the category.
package seedpolicy

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedkeeper/internal/domain"
	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/internal/telemetry"
)

// TorrentStore lists torrents and accepts batched mutations. Empty hash lists
// must be a no-op.
type TorrentStore interface {
	Torrents(ctx context.Context, category string) ([]models.Torrent, error)
	DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error
	SetForceStart(ctx context.Context, hashes []string, value bool) error
}

// Telemetry answers windowed average queries. Failures never surface as
// errors; they come back as telemetry.OutcomeFailed with a zero value.
type Telemetry interface {
	Average(ctx context.Context, expr string, window time.Duration) telemetry.Average
}

// IndexerControl lists autobrr indexers and flips their enabled flag.
type IndexerControl interface {
	Indexers(ctx context.Context) ([]models.Indexer, error)
	SetIndexerEnabled(ctx context.Context, id int, enabled bool) error
}

// Recorder receives run statistics. *metrics.Manager implements it.
type Recorder interface {
	TorrentsDeleted(reason string, n int)
	TorrentsForceStarted(n int)
	TorrentsClassified(active, completed, excluded int)
	TelemetryFailure()
	ToggleDecided(enable bool, avgGlobalUpload float64, usedBytes int64)
	IndexerToggled(enabled bool)
}

// Options carries the optional collaborators of a Service.
type Options struct {
	// Indexers may be nil, in which case indexer reconciliation is skipped.
	Indexers IndexerControl
	Recorder Recorder
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Service runs one policy pass per Run call. It holds no state between runs.
type Service struct {
	cfg       *domain.Config
	store     TorrentStore
	telemetry Telemetry
	indexers  IndexerControl
	recorder  Recorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService constructs a Service. cfg is read-only for the lifetime of the service.
func NewService(cfg *domain.Config, store TorrentStore, tel Telemetry, opts Options) *Service {
	s := &Service{
		cfg:       cfg,
		store:     store,
		telemetry: tel,
		indexers:  opts.Indexers,
		recorder:  opts.Recorder,
		logger:    log.Logger,
		now:       time.Now,
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	if opts.Now != nil {
		s.now = opts.Now
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

// Run executes one linear pass: snapshot, classify, reconcile the completed
// set, enforce the quota, re-snapshot, decide the toggle and reconcile
// indexers. Only torrent store failures and unknown torrent statuses are
// returned; the plan built so far is returned alongside the error.
func (s *Service) Run(ctx context.Context) (*Plan, error) {
	plan := &Plan{
		StartedAt:  s.now(),
		Simulation: s.cfg.Simulation,
		Category:   s.cfg.CategoryFilter,
	}

	torrents, err := s.store.Torrents(ctx, s.cfg.CategoryFilter)
	if err != nil {
		return plan, errors.Wrap(err, "fetch torrent snapshot")
	}

	classification, err := s.Classify(ctx, torrents)
	if err != nil {
		return plan, err
	}
	plan.Classification = classification

	threshold, err := s.reconcileCompleted(ctx, classification.Completed)
	plan.Threshold = threshold
	if err != nil {
		return plan, err
	}

	quota, err := s.applyQuota(ctx, classification.UsedSpace, threshold.ForcedSeeding)
	plan.Quota = quota
	if err != nil {
		return plan, err
	}

	decision, err := s.DecideToggle(ctx)
	if err != nil {
		return plan, err
	}
	plan.Toggle = &decision

	if s.indexers == nil {
		s.logger.Debug().Msg("autobrr not configured, skipping indexer reconciliation")
		plan.FinishedAt = s.now()
		return plan, nil
	}

	changes, err := s.ReconcileIndexers(ctx, decision)
	plan.Indexers = changes
	if err != nil {
		plan.IndexerError = err.Error()
	}

	plan.FinishedAt = s.now()
	return plan, nil
}

// prefix marks log lines that describe mutations which were not issued.
func (s *Service) prefix() string {
	if s.cfg.Simulation {
		return "SIMULATION: "
	}
	return ""
}

type nopRecorder struct{}

func (nopRecorder) TorrentsDeleted(string, int)        {}
func (nopRecorder) TorrentsForceStarted(int)           {}
func (nopRecorder) TorrentsClassified(int, int, int)   {}
func (nopRecorder) TelemetryFailure()                  {}
func (nopRecorder) ToggleDecided(bool, float64, int64) {}
func (nopRecorder) IndexerToggled(bool)                {}
