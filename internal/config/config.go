// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the process configuration from the environment and an
// optional TOML file.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/autobrr/seedkeeper/internal/domain"
)

// Keys double as environment variable names once upper-cased.
const (
	KeyQBittorrentHost      = "qbittorrent_host"
	KeyQBittorrentPort      = "qbittorrent_port"
	KeyQBittorrentUsername  = "qbittorrent_username"
	KeyQBittorrentPassword  = "qbittorrent_password"
	KeyQBittorrentBasicUser = "qbittorrent_basic_user"
	KeyQBittorrentBasicPass = "qbittorrent_basic_pass"
	KeyPrometheusHost       = "prometheus_host"
	KeyPrometheusPort       = "prometheus_port"
	KeyAutobrrHost          = "autobrr_host"
	KeyAutobrrPort          = "autobrr_port"
	KeyAutobrrAPIKey        = "autobrr_api_key"
	KeyAutobrrRetryAttempts = "autobrr_retry_attempts"
	KeyCategoryFilter       = "torrent_category_filter"
	KeyGlobalThreshold      = "global_upload_threshold_bytes"
	KeyGlobalHorizon        = "global_time_horizon_seconds"
	KeyTorrentThreshold     = "torrent_upload_threshold_bytes"
	KeyTorrentHorizon       = "torrent_time_horizon_seconds"
	KeyMaxSize              = "max_torrents_size_bytes"
	KeySizePolicy           = "enforce_max_size_policy"
	KeyIndexerName          = "autobrr_indexer_name"
	KeySimulation           = "simulation_mode"
	KeyUploadSpeedMetric    = "upload_speed_metric"
	KeyUploadSpeedNameLabel = "upload_speed_name_label"
	KeyRequestTimeout       = "request_timeout_seconds"
	KeyDebug                = "debug"
	KeyLogLevel             = "log_level"
	KeyLogPath              = "log_path"
	KeyLogMaxSize           = "log_max_size"
	KeyLogMaxBackups        = "log_max_backups"
	KeyPushgatewayURL       = "pushgateway_url"
	KeyPushgatewayJob       = "pushgateway_job"
)

var defaults = map[string]any{
	KeyQBittorrentHost:      "",
	KeyQBittorrentPort:      8080,
	KeyQBittorrentUsername:  "",
	KeyQBittorrentPassword:  "",
	KeyQBittorrentBasicUser: "",
	KeyQBittorrentBasicPass: "",
	KeyPrometheusHost:       "",
	KeyPrometheusPort:       9090,
	KeyAutobrrHost:          "",
	KeyAutobrrPort:          7474,
	KeyAutobrrAPIKey:        "",
	KeyAutobrrRetryAttempts: 3,
	KeyCategoryFilter:       "autobrr",
	KeyGlobalThreshold:      "1048576",
	KeyGlobalHorizon:        43200,
	KeyTorrentThreshold:     "10240",
	KeyTorrentHorizon:       432000,
	KeyMaxSize:              "1099511627776",
	KeySizePolicy:           string(domain.SizePolicyRelaxed),
	KeyIndexerName:          "",
	KeySimulation:           false,
	KeyUploadSpeedMetric:    "qbittorrent_torrent_upload_speed_bytes",
	KeyUploadSpeedNameLabel: "name",
	KeyRequestTimeout:       30,
	KeyDebug:                false,
	KeyLogLevel:             "INFO",
	KeyLogPath:              "",
	KeyLogMaxSize:           50,
	KeyLogMaxBackups:        3,
	KeyPushgatewayURL:       "",
	KeyPushgatewayJob:       "seedkeeper",
}

type rawConfig struct {
	QBittorrentHost      string `mapstructure:"qbittorrent_host"`
	QBittorrentPort      int    `mapstructure:"qbittorrent_port"`
	QBittorrentUsername  string `mapstructure:"qbittorrent_username"`
	QBittorrentPassword  string `mapstructure:"qbittorrent_password"`
	QBittorrentBasicUser string `mapstructure:"qbittorrent_basic_user"`
	QBittorrentBasicPass string `mapstructure:"qbittorrent_basic_pass"`
	PrometheusHost       string `mapstructure:"prometheus_host"`
	PrometheusPort       int    `mapstructure:"prometheus_port"`
	AutobrrHost          string `mapstructure:"autobrr_host"`
	AutobrrPort          int    `mapstructure:"autobrr_port"`
	AutobrrAPIKey        string `mapstructure:"autobrr_api_key"`
	AutobrrRetryAttempts int    `mapstructure:"autobrr_retry_attempts"`
	CategoryFilter       string `mapstructure:"torrent_category_filter"`
	GlobalThreshold      string `mapstructure:"global_upload_threshold_bytes"`
	GlobalHorizon        int64  `mapstructure:"global_time_horizon_seconds"`
	TorrentThreshold     string `mapstructure:"torrent_upload_threshold_bytes"`
	TorrentHorizon       int64  `mapstructure:"torrent_time_horizon_seconds"`
	MaxSize              string `mapstructure:"max_torrents_size_bytes"`
	SizePolicy           string `mapstructure:"enforce_max_size_policy"`
	IndexerName          string `mapstructure:"autobrr_indexer_name"`
	Simulation           bool   `mapstructure:"simulation_mode"`
	UploadSpeedMetric    string `mapstructure:"upload_speed_metric"`
	UploadSpeedNameLabel string `mapstructure:"upload_speed_name_label"`
	RequestTimeout       int    `mapstructure:"request_timeout_seconds"`
	Debug                bool   `mapstructure:"debug"`
	LogLevel             string `mapstructure:"log_level"`
	LogPath              string `mapstructure:"log_path"`
	LogMaxSize           int    `mapstructure:"log_max_size"`
	LogMaxBackups        int    `mapstructure:"log_max_backups"`
	PushgatewayURL       string `mapstructure:"pushgateway_url"`
	PushgatewayJob       string `mapstructure:"pushgateway_job"`
}

// NewViper returns a viper instance with every key defaulted and bound to its
// environment variable.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and decodes v into a validated Config.
func Load(v *viper.Viper, configPath, version string) (*domain.Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	cfg, err := raw.toDomain(version)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (r rawConfig) toDomain(version string) (*domain.Config, error) {
	globalThreshold, err := parseByteSize(KeyGlobalThreshold, r.GlobalThreshold)
	if err != nil {
		return nil, err
	}
	torrentThreshold, err := parseByteSize(KeyTorrentThreshold, r.TorrentThreshold)
	if err != nil {
		return nil, err
	}
	maxSize, err := parseByteSize(KeyMaxSize, r.MaxSize)
	if err != nil {
		return nil, err
	}
	policy, err := domain.ParseSizePolicy(r.SizePolicy)
	if err != nil {
		return nil, err
	}

	return &domain.Config{
		Version:                version,
		QBittorrentHost:        strings.TrimSpace(r.QBittorrentHost),
		QBittorrentPort:        r.QBittorrentPort,
		QBittorrentUsername:    r.QBittorrentUsername,
		QBittorrentPassword:    r.QBittorrentPassword,
		QBittorrentBasicUser:   r.QBittorrentBasicUser,
		QBittorrentBasicPass:   r.QBittorrentBasicPass,
		PrometheusHost:         strings.TrimSpace(r.PrometheusHost),
		PrometheusPort:         r.PrometheusPort,
		AutobrrHost:            strings.TrimSpace(r.AutobrrHost),
		AutobrrPort:            r.AutobrrPort,
		AutobrrAPIKey:          r.AutobrrAPIKey,
		AutobrrRetryAttempts:   r.AutobrrRetryAttempts,
		CategoryFilter:         r.CategoryFilter,
		GlobalUploadThreshold:  globalThreshold,
		GlobalHorizonSeconds:   r.GlobalHorizon,
		TorrentUploadThreshold: torrentThreshold,
		TorrentHorizonSeconds:  r.TorrentHorizon,
		MaxCategorySize:        maxSize,
		SizePolicy:             policy,
		IndexerFilter:          r.IndexerName,
		Simulation:             r.Simulation,
		UploadSpeedMetric:      strings.TrimSpace(r.UploadSpeedMetric),
		UploadSpeedNameLabel:   strings.TrimSpace(r.UploadSpeedNameLabel),
		RequestTimeout:         time.Duration(r.RequestTimeout) * time.Second,
		Debug:                  r.Debug,
		LogLevel:               r.LogLevel,
		LogPath:                r.LogPath,
		LogMaxSize:             r.LogMaxSize,
		LogMaxBackups:          r.LogMaxBackups,
		PushgatewayURL:         strings.TrimSpace(r.PushgatewayURL),
		PushgatewayJob:         r.PushgatewayJob,
	}, nil
}

// parseByteSize accepts plain byte counts ("10240") as well as human sizes
// ("10 KiB", "1TB").
func parseByteSize(key, raw string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, strings.ToUpper(key), err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s: %q overflows", domain.ErrInvalidConfig, strings.ToUpper(key), raw)
	}
	return int64(n), nil
}
