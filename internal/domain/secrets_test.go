// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", RedactString(""))
	assert.Equal(t, "******", RedactString("secret"))
}

func TestConfigRedacted(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		QBittorrentUsername:  "admin",
		QBittorrentPassword:  "adminadmin",
		QBittorrentBasicPass: "basic",
		AutobrrAPIKey:        "abc123",
	}

	out := cfg.Redacted()
	assert.Equal(t, "admin", out.QBittorrentUsername)
	assert.Equal(t, "**********", out.QBittorrentPassword)
	assert.Equal(t, "*****", out.QBittorrentBasicPass)
	assert.Equal(t, "******", out.AutobrrAPIKey)
	assert.Equal(t, "adminadmin", cfg.QBittorrentPassword, "source config must be untouched")
}
