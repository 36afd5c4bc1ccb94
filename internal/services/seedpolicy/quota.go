// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package seedpolicy

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/autobrr/seedkeeper/internal/domain"
	"github.com/autobrr/seedkeeper/internal/metrics"
	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/pkg/units"
)

// Allocate ranks candidates by average upload speed, fastest first, keeping
// input order for equal speeds, and keeps each torrent whose size still fits
// the budget on top of the torrents already kept. A rejected torrent does not
// stop the scan. A budget of zero or less rejects everything.
func Allocate(candidates []models.Torrent, budget int64) Allocation {
	return allocate(candidates, budget, nil)
}

// allocate calls visit for every ranked torrent with the decision and the
// kept size at that point.
func allocate(candidates []models.Torrent, budget int64, visit func(t models.Torrent, kept bool, cumulative int64)) Allocation {
	ranked := make([]models.Torrent, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AvgUploadSpeed > ranked[j].AvgUploadSpeed
	})

	var alloc Allocation
	for _, t := range ranked {
		kept := budget > 0 && alloc.KeptSize+t.Size <= budget
		if kept {
			alloc.KeptSize += t.Size
			alloc.Kept = append(alloc.Kept, t)
		} else {
			alloc.Rejected = append(alloc.Rejected, t)
		}
		if visit != nil {
			visit(t, kept, alloc.KeptSize)
		}
	}
	return alloc
}

// EnforceQuota allocates budget over candidates and deletes the rejected
// torrents with their data.
func (s *Service) EnforceQuota(ctx context.Context, candidates []models.Torrent, budget int64) (Allocation, error) {
	limit := units.GB(float64(budget))
	alloc := allocate(candidates, budget, func(t models.Torrent, kept bool, cumulative int64) {
		if kept {
			s.logger.Debug().Msgf("Current torrent %s of size %s, current sum %s does not exceed maximum %s.",
				t.Name, units.GB(float64(t.Size)), units.GB(float64(cumulative)), limit)
			return
		}
		s.logger.Warn().Msgf("Scheduled torrent removal: %s (hash: %s) of size %s, current sum %s would exceed maximum %s.",
			t.Name, t.Hash, units.GB(float64(t.Size)), units.GB(float64(cumulative)), limit)
	})

	if err := s.deleteTorrents(ctx, alloc.Rejected, metrics.ReasonDiskQuota); err != nil {
		return alloc, errors.Wrap(err, "delete torrents over disk quota")
	}
	if len(alloc.Rejected) > 0 {
		s.logger.Info().Msgf("%sRemoved torrents due to disk space limit: %s", s.prefix(), quoteNames(alloc.Rejected))
	}

	return alloc, nil
}

// applyQuota picks the quota branch. usedSpace is the snapshot taken before
// the completed set was reconciled.
func (s *Service) applyQuota(ctx context.Context, usedSpace int64, forced []models.Torrent) (QuotaResult, error) {
	maxSize := s.cfg.MaxCategorySize
	free := maxSize - usedSpace
	result := QuotaResult{UsedSpace: usedSpace, MaxSize: maxSize}

	s.logger.Debug().Msgf("Used space by category torrents: %s, remaining free space: %s",
		units.GB(float64(usedSpace)), units.GB(float64(free)))

	switch {
	case usedSpace <= maxSize:
		result.Mode = QuotaWithinBudget
		result.Budget = free
	case s.cfg.SizePolicy == domain.SizePolicyStrict:
		s.logger.Debug().Msgf("Disk space limit exceeded by %s. Removing all forced seeding torrents.", units.GB(float64(-free)))
		result.Mode = QuotaStrictExceeded
	default:
		s.logger.Debug().Msgf("Disk space limit exceeded by %s. Keeping forced seeding torrents due to relaxed policy.", units.GB(float64(-free)))
		result.Mode = QuotaRelaxedExceeded
		result.Allocation = Allocation{Kept: forced, KeptSize: models.TotalSize(forced)}
		return result, nil
	}

	alloc, err := s.EnforceQuota(ctx, forced, result.Budget)
	result.Allocation = alloc
	return result, err
}
