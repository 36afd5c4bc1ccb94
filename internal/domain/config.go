// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// IndexerFilterAll matches every indexer (compared case-insensitively).
const IndexerFilterAll = "all"

// SizePolicy decides what happens to forced-seeding torrents once the
// category already exceeds its size budget.
type SizePolicy string

const (
	// SizePolicyStrict deletes every forced-seeding torrent when the budget is exceeded.
	SizePolicyStrict SizePolicy = "strict"
	// SizePolicyRelaxed keeps forced-seeding torrents when the budget is exceeded.
	SizePolicyRelaxed SizePolicy = "relaxed"
)

// ParseSizePolicy maps a configured value onto a SizePolicy.
func ParseSizePolicy(raw string) (SizePolicy, error) {
	switch SizePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case SizePolicyStrict:
		return SizePolicyStrict, nil
	case SizePolicyRelaxed, "":
		return SizePolicyRelaxed, nil
	default:
		return "", fmt.Errorf("%w: unknown size policy %q (want strict or relaxed)", ErrInvalidConfig, raw)
	}
}

// Config is the process configuration. It is built once at startup and must
// not be mutated afterwards.
type Config struct {
	Version string

	QBittorrentHost      string
	QBittorrentPort      int
	QBittorrentUsername  string
	QBittorrentPassword  string
	QBittorrentBasicUser string
	QBittorrentBasicPass string

	PrometheusHost string
	PrometheusPort int

	AutobrrHost          string
	AutobrrPort          int
	AutobrrAPIKey        string
	AutobrrRetryAttempts int

	CategoryFilter string

	// GlobalUploadThreshold and TorrentUploadThreshold are in bytes per second.
	GlobalUploadThreshold  int64
	GlobalHorizonSeconds   int64
	TorrentUploadThreshold int64
	TorrentHorizonSeconds  int64

	MaxCategorySize int64
	SizePolicy      SizePolicy
	IndexerFilter   string
	Simulation      bool

	UploadSpeedMetric    string
	UploadSpeedNameLabel string
	RequestTimeout       time.Duration

	Debug         bool
	LogLevel      string
	LogPath       string
	LogMaxSize    int
	LogMaxBackups int

	PushgatewayURL string
	PushgatewayJob string
}

// GlobalHorizon is the averaging window of the aggregate upload rate.
func (c *Config) GlobalHorizon() time.Duration {
	return time.Duration(c.GlobalHorizonSeconds) * time.Second
}

// TorrentHorizon is the averaging window of a single torrent's upload rate.
func (c *Config) TorrentHorizon() time.Duration {
	return time.Duration(c.TorrentHorizonSeconds) * time.Second
}

// QBittorrentURL returns the WebUI base URL.
func (c *Config) QBittorrentURL() string {
	return baseURL(c.QBittorrentHost, c.QBittorrentPort)
}

// PrometheusURL returns the Prometheus server base URL.
func (c *Config) PrometheusURL() string {
	return baseURL(c.PrometheusHost, c.PrometheusPort)
}

// AutobrrURL returns the autobrr API root, e.g. http://autobrr:7474/api.
func (c *Config) AutobrrURL() string {
	if strings.TrimSpace(c.AutobrrHost) == "" {
		return ""
	}
	return baseURL(c.AutobrrHost, c.AutobrrPort) + "/api"
}

// AutobrrEnabled reports whether indexer reconciliation is configured.
func (c *Config) AutobrrEnabled() bool {
	return strings.TrimSpace(c.AutobrrHost) != ""
}

// MatchesIndexer reports whether an indexer named name falls under the
// configured filter: "all" in any case, or an exact, case-sensitive name.
func (c *Config) MatchesIndexer(name string) bool {
	if strings.EqualFold(c.IndexerFilter, IndexerFilterAll) {
		return true
	}
	return name == c.IndexerFilter
}

// Validate checks the configuration and joins every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if strings.TrimSpace(c.QBittorrentHost) == "" {
		add("QBITTORRENT_HOST is required")
	}
	if strings.TrimSpace(c.PrometheusHost) == "" {
		add("PROMETHEUS_HOST is required")
	}
	if strings.TrimSpace(c.CategoryFilter) == "" {
		add("TORRENT_CATEGORY_FILTER must not be empty")
	}
	if c.GlobalHorizonSeconds <= 0 {
		add("GLOBAL_TIME_HORIZON_SECONDS must be positive, got %d", c.GlobalHorizonSeconds)
	}
	if c.TorrentHorizonSeconds <= 0 {
		add("TORRENT_TIME_HORIZON_SECONDS must be positive, got %d", c.TorrentHorizonSeconds)
	}
	if c.GlobalUploadThreshold < 0 {
		add("GLOBAL_UPLOAD_THRESHOLD_BYTES must not be negative")
	}
	if c.TorrentUploadThreshold < 0 {
		add("TORRENT_UPLOAD_THRESHOLD_BYTES must not be negative")
	}
	if c.MaxCategorySize <= 0 {
		add("MAX_TORRENTS_SIZE_BYTES must be positive")
	}
	if c.SizePolicy != SizePolicyStrict && c.SizePolicy != SizePolicyRelaxed {
		add("unknown size policy %q", c.SizePolicy)
	}
	if c.AutobrrEnabled() && strings.TrimSpace(c.IndexerFilter) == "" {
		add("AUTOBRR_INDEXER_NAME is required when AUTOBRR_HOST is set")
	}
	if strings.TrimSpace(c.UploadSpeedMetric) == "" {
		add("UPLOAD_SPEED_METRIC must not be empty")
	}

	return errors.Join(errs...)
}

// Redacted returns a copy that is safe to log.
func (c *Config) Redacted() Config {
	out := *c
	out.QBittorrentPassword = RedactString(c.QBittorrentPassword)
	out.QBittorrentBasicPass = RedactString(c.QBittorrentBasicPass)
	out.AutobrrAPIKey = RedactString(c.AutobrrAPIKey)
	return out
}

func baseURL(host string, port int) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if port <= 0 {
		return host
	}
	// Hosts that already carry a port are left alone.
	if _, _, err := net.SplitHostPort(strings.SplitN(host, "://", 2)[1]); err == nil {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}
