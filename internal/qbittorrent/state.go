// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/pkg/hashutil"
)

var stateMapping = map[qbt.TorrentState]models.TorrentStatus{
	qbt.TorrentStateDownloading:        models.StatusDownloading,
	qbt.TorrentStateStalledDl:          models.StatusDownloading,
	qbt.TorrentStateMetaDl:             models.StatusDownloading,
	qbt.TorrentState("forcedMetaDL"):   models.StatusDownloading,
	qbt.TorrentStateForcedDl:           models.StatusDownloading,
	qbt.TorrentStateQueuedDl:           models.StatusDownloading,
	qbt.TorrentStateAllocating:         models.StatusDownloading,
	qbt.TorrentStatePausedDl:           models.StatusStoppedDownload,
	qbt.TorrentStateStoppedDl:          models.StatusStoppedDownload,
	qbt.TorrentStateUploading:          models.StatusSeeding,
	qbt.TorrentStateStalledUp:          models.StatusSeeding,
	qbt.TorrentStateForcedUp:           models.StatusSeeding,
	qbt.TorrentStateQueuedUp:           models.StatusSeeding,
	qbt.TorrentStatePausedUp:           models.StatusCompleted,
	qbt.TorrentStateStoppedUp:          models.StatusCompleted,
	qbt.TorrentStateCheckingDl:         models.StatusChecking,
	qbt.TorrentStateCheckingUp:         models.StatusChecking,
	qbt.TorrentStateCheckingResumeData: models.StatusChecking,
	qbt.TorrentStateMoving:             models.StatusChecking,
	qbt.TorrentStateError:              models.StatusError,
	qbt.TorrentStateMissingFiles:       models.StatusError,
}

// stateNaming is the generation of terminal state names a WebAPI reports.
// qBittorrent 5.0 renamed pausedUP/pausedDL to stoppedUP/stoppedDL.
type stateNaming int

const (
	namingUnknown stateNaming = iota
	namingPaused
	namingStopped
)

func (n stateNaming) String() string {
	switch n {
	case namingPaused:
		return "paused"
	case namingStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// accepts reports whether state belongs to this naming generation. An unknown
// generation accepts both spellings.
func (n stateNaming) accepts(state qbt.TorrentState) bool {
	switch state {
	case qbt.TorrentStatePausedUp, qbt.TorrentStatePausedDl:
		return n != namingStopped
	case qbt.TorrentStateStoppedUp, qbt.TorrentStateStoppedDl:
		return n != namingPaused
	default:
		return true
	}
}

// ParseState maps a raw qBittorrent state onto a TorrentStatus. Unmapped
// states yield a *models.UnknownStatusError.
func ParseState(state qbt.TorrentState) (models.TorrentStatus, error) {
	status, ok := stateMapping[state]
	if !ok {
		return 0, &models.UnknownStatusError{Raw: string(state)}
	}
	return status, nil
}

// ToModel converts a qBittorrent torrent into the engine's snapshot type,
// accepting both the paused and the stopped state names.
func ToModel(t qbt.Torrent) (models.Torrent, error) {
	return toModel(t, namingUnknown)
}

// toModel converts t, rejecting terminal states from the other naming
// generation. A pausedUP from a WebAPI that only reports stoppedUP is as
// unexplained as any other unmapped state.
func toModel(t qbt.Torrent, naming stateNaming) (models.Torrent, error) {
	if !naming.accepts(t.State) {
		return models.Torrent{}, &models.UnknownStatusError{Raw: string(t.State), Hash: t.Hash}
	}
	status, err := ParseState(t.State)
	if err != nil {
		return models.Torrent{}, &models.UnknownStatusError{Raw: string(t.State), Hash: t.Hash}
	}

	return models.Torrent{
		Name:              t.Name,
		Hash:              hashutil.Normalize(t.Hash),
		Size:              t.Size,
		Category:          t.Category,
		Status:            status,
		State:             string(t.State),
		RemainingSeedTime: t.ETA,
	}, nil
}
