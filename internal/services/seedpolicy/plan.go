// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package seedpolicy

import (
	"time"

	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/internal/telemetry"
)

// Plan records every decision of one run. In simulation mode it is the only
// trace of what would have happened.
type Plan struct {
	StartedAt  time.Time `yaml:"startedAt"`
	FinishedAt time.Time `yaml:"finishedAt"`
	Simulation bool      `yaml:"simulation"`
	Category   string    `yaml:"category"`

	Classification Classification  `yaml:"classification"`
	Threshold      ThresholdResult `yaml:"threshold"`
	Quota          QuotaResult     `yaml:"quota"`
	Toggle         *ToggleDecision `yaml:"toggle,omitempty"`
	Indexers       []IndexerChange `yaml:"indexers,omitempty"`
	IndexerError   string          `yaml:"indexerError,omitempty"`
}

// Classification partitions the category snapshot. A torrent lands in at most
// one of Active and Completed; the rest are Excluded.
type Classification struct {
	Active    []models.Torrent `yaml:"active"`
	Completed []models.Torrent `yaml:"completed"`
	Excluded  []models.Torrent `yaml:"excluded"`
	// UsedSpace sums Size over every category torrent, excluded ones included.
	UsedSpace int64 `yaml:"usedSpace"`
	// Telemetry holds the per-torrent average keyed by hash.
	Telemetry map[string]telemetry.Average `yaml:"telemetry"`
}

// ThresholdResult is the outcome of reconciling the completed set.
type ThresholdResult struct {
	Deleted      []models.Torrent `yaml:"deleted"`
	ForceStarted []models.Torrent `yaml:"forceStarted"`
	// ForcedSeeding is every completed torrent kept for meeting the threshold.
	ForcedSeeding []models.Torrent `yaml:"forcedSeeding"`
}

// QuotaMode names the branch the disk quota phase took.
type QuotaMode string

const (
	QuotaWithinBudget    QuotaMode = "within_budget"
	QuotaStrictExceeded  QuotaMode = "strict_exceeded"
	QuotaRelaxedExceeded QuotaMode = "relaxed_exceeded"
)

// QuotaResult is the outcome of the disk quota phase.
type QuotaResult struct {
	Mode       QuotaMode  `yaml:"mode"`
	UsedSpace  int64      `yaml:"usedSpace"`
	MaxSize    int64      `yaml:"maxSize"`
	Budget     int64      `yaml:"budget"`
	Allocation Allocation `yaml:"allocation"`
}

// Allocation is the greedy split of candidates against a byte budget.
type Allocation struct {
	Kept     []models.Torrent `yaml:"kept"`
	Rejected []models.Torrent `yaml:"rejected"`
	KeptSize int64            `yaml:"keptSize"`
}

// ToggleDecision is the desired enabled state of the indexer feed.
type ToggleDecision struct {
	Enable          bool    `yaml:"enable"`
	AvgGlobalUpload float64 `yaml:"avgGlobalUpload"`
	// GlobalTelemetry is the outcome of the aggregate upload query.
	GlobalTelemetry telemetry.Outcome `yaml:"globalTelemetry"`
	TotalUsedSpace  int64             `yaml:"totalUsedSpace"`
	Reason          string            `yaml:"reason"`
}

// IndexerChange is one indexer transition, applied or simulated.
type IndexerChange struct {
	ID      int    `yaml:"id"`
	Name    string `yaml:"name"`
	From    bool   `yaml:"from"`
	To      bool   `yaml:"to"`
	Applied bool   `yaml:"applied"`
}
