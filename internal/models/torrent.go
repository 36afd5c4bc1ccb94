// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"errors"
	"fmt"
)

// ErrUnknownTorrentStatus is matched by every *UnknownStatusError.
var ErrUnknownTorrentStatus = errors.New("unknown torrent status")

// UnknownStatusError reports a state string the torrent store returned that
// has no TorrentStatus mapping.
type UnknownStatusError struct {
	Raw  string
	Hash string
}

func (e *UnknownStatusError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("unknown torrent status %q for torrent %s", e.Raw, e.Hash)
	}
	return fmt.Sprintf("unknown torrent status %q", e.Raw)
}

func (e *UnknownStatusError) Is(target error) bool {
	return target == ErrUnknownTorrentStatus
}

// TorrentStatus is the lifecycle class of a torrent.
type TorrentStatus int

const (
	StatusDownloading TorrentStatus = iota + 1
	StatusStoppedDownload
	// StatusSeeding is any state that is still uploading, forced or not.
	StatusSeeding
	// StatusCompleted is the terminal completed-seed state: fully downloaded
	// and no longer seeding.
	StatusCompleted
	StatusChecking
	StatusError
)

var statusNames = map[TorrentStatus]string{
	StatusDownloading:     "downloading",
	StatusStoppedDownload: "stopped_download",
	StatusSeeding:         "seeding",
	StatusCompleted:       "completed",
	StatusChecking:        "checking",
	StatusError:           "error",
}

func (s TorrentStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TorrentStatus(%d)", int(s))
}

// Valid reports whether s is one of the declared statuses.
func (s TorrentStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s TorrentStatus) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Torrent is a per-run snapshot of one torrent in the store.
type Torrent struct {
	Name     string        `yaml:"name"`
	Hash     string        `yaml:"hash"`
	Size     int64         `yaml:"size"`
	Category string        `yaml:"category"`
	Status   TorrentStatus `yaml:"status"`
	// State is the raw state string reported by the store.
	State string `yaml:"state"`
	// RemainingSeedTime is the store's ETA in seconds.
	RemainingSeedTime int64 `yaml:"remainingSeedTime"`
	// AvgUploadSpeed is filled in by the policy engine, in bytes per second.
	AvgUploadSpeed float64 `yaml:"avgUploadSpeed"`
}

// IsCompleted reports whether the torrent sits in the terminal completed-seed state.
func (t Torrent) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// Hashes returns the hash of every torrent, preserving order.
func Hashes(torrents []Torrent) []string {
	out := make([]string, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, t.Hash)
	}
	return out
}

// Names returns the name of every torrent, preserving order.
func Names(torrents []Torrent) []string {
	out := make([]string, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, t.Name)
	}
	return out
}

// TotalSize sums Size over torrents.
func TotalSize(torrents []Torrent) int64 {
	var total int64
	for _, t := range torrents {
		total += t.Size
	}
	return total
}
