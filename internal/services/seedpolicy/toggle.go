// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package seedpolicy

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/autobrr/seedkeeper/internal/telemetry"
	"github.com/autobrr/seedkeeper/pkg/units"
)

// DecideToggle decides whether autobrr should keep feeding the category. The
// feed is enabled only while the aggregate upload average stays below the
// global threshold and the category, re-read from the store, is below its
// size limit.
func (s *Service) DecideToggle(ctx context.Context) (ToggleDecision, error) {
	avg := s.telemetry.Average(ctx, s.cfg.UploadSpeedMetric, s.cfg.GlobalHorizon())
	if avg.Outcome == telemetry.OutcomeFailed {
		s.recorder.TelemetryFailure()
	}

	torrents, err := s.store.Torrents(ctx, s.cfg.CategoryFilter)
	if err != nil {
		return ToggleDecision{}, errors.Wrap(err, "refetch torrent snapshot")
	}
	var used int64
	for _, t := range torrents {
		if t.Category == s.cfg.CategoryFilter {
			used += t.Size
		}
	}

	decision := evaluateToggle(avg.Value, float64(s.cfg.GlobalUploadThreshold), used, s.cfg.MaxCategorySize)
	decision.GlobalTelemetry = avg.Outcome

	s.recorder.ToggleDecided(decision.Enable, decision.AvgGlobalUpload, decision.TotalUsedSpace)
	s.logger.Debug().
		Bool("enable", decision.Enable).
		Str("telemetry", avg.Outcome.String()).
		Msg(decision.Reason)

	return decision, nil
}

func evaluateToggle(avgUpload, threshold float64, used, maxSize int64) ToggleDecision {
	d := ToggleDecision{
		Enable:          avgUpload < threshold && used < maxSize,
		AvgGlobalUpload: avgUpload,
		TotalUsedSpace:  used,
	}
	if d.Enable {
		d.Reason = fmt.Sprintf("Switching autobrr on because %s < %s, and %s (total used space) < %s (Max. allocated space)",
			units.Rate(avgUpload), units.Rate(threshold), units.GB(float64(used)), units.GB(float64(maxSize)))
	} else {
		d.Reason = fmt.Sprintf("Switching autobrr off because %s >= %s, or %s (total used space) >= %s (Max. allocated space)",
			units.Rate(avgUpload), units.Rate(threshold), units.GB(float64(used)), units.GB(float64(maxSize)))
	}
	return d
}

// ReconcileIndexers applies decision to the indexers matched by the configured
// filter. The reason is logged for every indexer whose state differs from the
// decision, matched or not. Matched indexers are always sent the desired state.
//
// A transport failure is logged and abandons the remaining indexers; the
// changes applied so far are returned together with the error.
func (s *Service) ReconcileIndexers(ctx context.Context, decision ToggleDecision) ([]IndexerChange, error) {
	indexers, err := s.indexers.Indexers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error toggling autobrr indexers")
		return nil, errors.Wrap(err, "list indexers")
	}

	var changes []IndexerChange
	for _, idx := range indexers {
		if idx.Enabled != decision.Enable {
			s.logger.Info().Msg(decision.Reason)
		}
		if !s.cfg.MatchesIndexer(idx.Name) {
			continue
		}

		s.logger.Debug().Msgf("%sIndexer '%s' (ID: %d) %s", s.prefix(), idx.Name, idx.ID, enabledWord(decision.Enable))
		change := IndexerChange{ID: idx.ID, Name: idx.Name, From: idx.Enabled, To: decision.Enable}

		if !s.cfg.Simulation {
			if err := s.indexers.SetIndexerEnabled(ctx, idx.ID, decision.Enable); err != nil {
				s.logger.Error().Err(err).Msg("Error toggling autobrr indexers")
				return changes, errors.Wrapf(err, "set indexer %d enabled=%t", idx.ID, decision.Enable)
			}
			change.Applied = true
			if change.From != change.To {
				s.recorder.IndexerToggled(decision.Enable)
			}
		}
		changes = append(changes, change)
	}

	return changes, nil
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
