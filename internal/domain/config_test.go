// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		QBittorrentHost:        "qbittorrent",
		QBittorrentPort:        8080,
		PrometheusHost:         "prometheus",
		PrometheusPort:         9090,
		AutobrrHost:            "autobrr",
		AutobrrPort:            7474,
		CategoryFilter:         "autobrr",
		GlobalUploadThreshold:  1 << 20,
		GlobalHorizonSeconds:   43200,
		TorrentUploadThreshold: 10 << 10,
		TorrentHorizonSeconds:  432000,
		MaxCategorySize:        1 << 40,
		SizePolicy:             SizePolicyRelaxed,
		IndexerFilter:          "all",
		UploadSpeedMetric:      "qbittorrent_torrent_upload_speed_bytes",
	}
}

func TestParseSizePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    SizePolicy
		wantErr bool
	}{
		{raw: "strict", want: SizePolicyStrict},
		{raw: "STRICT", want: SizePolicyStrict},
		{raw: " relaxed ", want: SizePolicyRelaxed},
		{raw: "", want: SizePolicyRelaxed},
		{raw: "lenient", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSizePolicy(tt.raw)
		if tt.wantErr {
			require.Error(t, err, tt.raw)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts defaults", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := validConfig()
		cfg.QBittorrentHost = ""
		cfg.TorrentHorizonSeconds = 0
		cfg.MaxCategorySize = 0
		cfg.SizePolicy = "lenient"

		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		assert.Contains(t, err.Error(), "QBITTORRENT_HOST")
		assert.Contains(t, err.Error(), "TORRENT_TIME_HORIZON_SECONDS")
		assert.Contains(t, err.Error(), "MAX_TORRENTS_SIZE_BYTES")
		assert.Contains(t, err.Error(), "lenient")
	})

	t.Run("indexer filter required with autobrr", func(t *testing.T) {
		cfg := validConfig()
		cfg.IndexerFilter = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AUTOBRR_INDEXER_NAME")

		cfg.AutobrrHost = ""
		require.NoError(t, cfg.Validate())
	})
}

func TestMatchesIndexer(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.IndexerFilter = "ALL"
	assert.True(t, cfg.MatchesIndexer("TorrentLeech"))
	assert.True(t, cfg.MatchesIndexer(""))

	cfg.IndexerFilter = "TorrentLeech"
	assert.True(t, cfg.MatchesIndexer("TorrentLeech"))
	assert.False(t, cfg.MatchesIndexer("torrentleech"))
	assert.False(t, cfg.MatchesIndexer("IPTorrents"))
}

func TestURLs(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.Equal(t, "http://qbittorrent:8080", cfg.QBittorrentURL())
	assert.Equal(t, "http://prometheus:9090", cfg.PrometheusURL())
	assert.Equal(t, "http://autobrr:7474/api", cfg.AutobrrURL())

	cfg.PrometheusHost = "https://prom.example.com:443/"
	assert.Equal(t, "https://prom.example.com:443", cfg.PrometheusURL())

	cfg.AutobrrHost = ""
	assert.Equal(t, "", cfg.AutobrrURL())
	assert.False(t, cfg.AutobrrEnabled())
}

func TestHorizons(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.Equal(t, 12*time.Hour, cfg.GlobalHorizon())
	assert.Equal(t, 5*24*time.Hour, cfg.TorrentHorizon())
}
