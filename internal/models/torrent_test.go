// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestUnknownStatusError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("classify: %w", &UnknownStatusError{Raw: "teleporting", Hash: "abc"})
	assert.True(t, errors.Is(err, ErrUnknownTorrentStatus))

	var statusErr *UnknownStatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "teleporting", statusErr.Raw)
	assert.Contains(t, err.Error(), "abc")
}

func TestTorrentStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "seeding", StatusSeeding.String())
	assert.Equal(t, "TorrentStatus(0)", TorrentStatus(0).String())

	out, err := yaml.Marshal(Torrent{Name: "a", Status: StatusCompleted})
	assert.NoError(t, err)
	assert.Contains(t, string(out), "status: completed")
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	torrents := []Torrent{
		{Name: "a", Hash: "h1", Size: 100, Status: StatusCompleted},
		{Name: "b", Hash: "h2", Size: 250, Status: StatusSeeding},
	}

	assert.Equal(t, []string{"h1", "h2"}, Hashes(torrents))
	assert.Equal(t, []string{"a", "b"}, Names(torrents))
	assert.Equal(t, int64(350), TotalSize(torrents))
	assert.True(t, torrents[0].IsCompleted())
	assert.False(t, torrents[1].IsCompleted())
	assert.Empty(t, Hashes(nil))
}
