// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package seedpolicy

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/autobrr/seedkeeper/internal/metrics"
	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/pkg/units"
)

// ReconcileCompleted deletes completed torrents whose average upload speed is
// below the per-torrent threshold and force-starts the rest. It returns the
// forced-seeding set that competes for the disk quota.
func (s *Service) ReconcileCompleted(ctx context.Context, completed []models.Torrent) ([]models.Torrent, error) {
	result, err := s.reconcileCompleted(ctx, completed)
	return result.ForcedSeeding, err
}

func (s *Service) reconcileCompleted(ctx context.Context, completed []models.Torrent) (ThresholdResult, error) {
	var result ThresholdResult
	threshold := float64(s.cfg.TorrentUploadThreshold)

	for _, t := range completed {
		if t.AvgUploadSpeed < threshold {
			s.logger.Debug().Msgf("Scheduled for removal: %s (hash: %s), average upload speed %s < threshold %s",
				t.Name, t.Hash, units.Rate(t.AvgUploadSpeed), units.Rate(threshold))
			result.Deleted = append(result.Deleted, t)
			continue
		}

		s.logger.Debug().Msgf("Keeping torrent: %s (hash: %s), average upload speed %s >= threshold %s",
			t.Name, t.Hash, units.Rate(t.AvgUploadSpeed), units.Rate(threshold))
		if t.IsCompleted() {
			result.ForceStarted = append(result.ForceStarted, t)
		}
		result.ForcedSeeding = append(result.ForcedSeeding, t)
	}

	if err := s.deleteTorrents(ctx, result.Deleted, metrics.ReasonUploadThreshold); err != nil {
		return result, errors.Wrap(err, "delete torrents below upload threshold")
	}
	if len(result.Deleted) > 0 {
		s.logger.Info().Msgf("%sRemoved torrents due to upload speed threshold: %s", s.prefix(), quoteNames(result.Deleted))
	}

	if !s.cfg.Simulation && len(result.ForceStarted) > 0 {
		if err := s.store.SetForceStart(ctx, models.Hashes(result.ForceStarted), true); err != nil {
			return result, errors.Wrap(err, "force start completed torrents")
		}
		s.recorder.TorrentsForceStarted(len(result.ForceStarted))
	}
	if len(result.ForceStarted) > 0 {
		s.logger.Info().Msgf("%sResumed seeding for completed torrents: %s", s.prefix(), quoteNames(result.ForceStarted))
	}

	return result, nil
}

// deleteTorrents removes torrents together with their data in one batched
// call. Nothing is sent in simulation mode or for an empty batch.
func (s *Service) deleteTorrents(ctx context.Context, torrents []models.Torrent, reason string) error {
	if s.cfg.Simulation || len(torrents) == 0 {
		return nil
	}
	if err := s.store.DeleteTorrents(ctx, models.Hashes(torrents), true); err != nil {
		return err
	}
	s.recorder.TorrentsDeleted(reason, len(torrents))
	return nil
}

func quoteNames(torrents []models.Torrent) string {
	return fmt.Sprintf("%q", models.Names(torrents))
}
