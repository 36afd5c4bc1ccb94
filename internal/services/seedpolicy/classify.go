// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package seedpolicy

import (
	"context"

	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/internal/telemetry"
	"github.com/autobrr/seedkeeper/pkg/units"
)

// Classify splits the category torrents into Active, Completed and Excluded
// and attaches each torrent's average upload speed over the torrent horizon.
//
// Completed wins over a positive remaining seed time. A torrent that is
// neither completed nor has seed time left is excluded and left alone this
// run, but its size still counts towards UsedSpace.
//
// Every status is checked before any telemetry is queried, so an unknown
// status fails the run without side effects.
func (s *Service) Classify(ctx context.Context, torrents []models.Torrent) (Classification, error) {
	matching := make([]models.Torrent, 0, len(torrents))
	for _, t := range torrents {
		if t.Category != s.cfg.CategoryFilter {
			continue
		}
		if !t.Status.Valid() {
			return Classification{}, &models.UnknownStatusError{Raw: t.State, Hash: t.Hash}
		}
		matching = append(matching, t)
	}

	c := Classification{
		Telemetry: make(map[string]telemetry.Average, len(matching)),
	}
	horizon := s.cfg.TorrentHorizon()

	for _, t := range matching {
		expr := telemetry.Selector(s.cfg.UploadSpeedMetric, s.cfg.UploadSpeedNameLabel, t.Name)
		avg := s.telemetry.Average(ctx, expr, horizon)
		if avg.Outcome == telemetry.OutcomeFailed {
			s.recorder.TelemetryFailure()
		}
		t.AvgUploadSpeed = avg.Value
		c.Telemetry[t.Hash] = avg
		c.UsedSpace += t.Size

		switch {
		case t.IsCompleted():
			c.Completed = append(c.Completed, t)
		case t.RemainingSeedTime > 0:
			s.logger.Debug().
				Str("torrent", t.Name).
				Int64("eta", t.RemainingSeedTime).
				Msgf("Keeping torrent '%s' with %s avg upload, still seeding", t.Name, units.Rate(t.AvgUploadSpeed))
			c.Active = append(c.Active, t)
		default:
			s.logger.Trace().
				Str("torrent", t.Name).
				Str("status", t.Status.String()).
				Msg("torrent neither completed nor seeding, skipping")
			c.Excluded = append(c.Excluded, t)
		}
	}

	s.recorder.TorrentsClassified(len(c.Active), len(c.Completed), len(c.Excluded))
	s.logger.Debug().
		Int("active", len(c.Active)).
		Int("completed", len(c.Completed)).
		Int("excluded", len(c.Excluded)).
		Str("used", units.GB(float64(c.UsedSpace))).
		Msg("classified torrents")

	return c, nil
}
