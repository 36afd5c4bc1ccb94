// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/pkg/hashutil"
	"github.com/autobrr/seedkeeper/pkg/redact"
)

// stoppedStatesMinWebAPI is the first WebAPI version (qBittorrent 5.0) that
// reports stoppedUP/stoppedDL instead of pausedUP/pausedDL.
const stoppedStatesMinWebAPI = "2.11.0"

// Config holds the connection settings of a qBittorrent instance.
type Config struct {
	Host          string
	Username      string
	Password      string
	BasicUsername string
	BasicPassword string
	Timeout       time.Duration
}

// Client is the torrent store used by the seeding policy engine.
type Client struct {
	api           *qbt.Client
	host          string
	webAPIVersion string
	naming        stateNaming
}

// filteredWriter drops the "Unsolicited response received on idle HTTP channel"
// noise that qBittorrent provokes in net/http's standard logger.
type filteredWriter struct {
	writer io.Writer
}

func (fw *filteredWriter) Write(p []byte) (n int, err error) {
	if strings.Contains(string(p), "Unsolicited response received on idle HTTP channel") {
		return len(p), nil
	}
	return fw.writer.Write(p)
}

func init() {
	stdlog.SetOutput(&filteredWriter{writer: os.Stderr})
}

// NewClient logs in to qBittorrent. An error means there is no usable store.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	qbtCfg := qbt.Config{
		Host:     cfg.Host,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  int(timeout / time.Second),
	}
	if cfg.BasicUsername != "" {
		qbtCfg.BasicUser = cfg.BasicUsername
		qbtCfg.BasicPass = cfg.BasicPassword
	}

	api := qbt.NewClient(qbtCfg)

	loginCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := api.LoginCtx(loginCtx); err != nil {
		return nil, errors.Wrapf(redact.URLError(err), "failed to connect to qBittorrent at %s", redact.URLString(cfg.Host))
	}

	webAPIVersion, err := api.GetWebAPIVersionCtx(loginCtx)
	if err != nil {
		log.Warn().
			Err(redact.URLError(err)).
			Str("host", redact.URLString(cfg.Host)).
			Msg("Could not read qBittorrent WebAPI version, accepting both paused and stopped states")
		webAPIVersion = ""
	}

	client := &Client{
		api:           api,
		host:          cfg.Host,
		webAPIVersion: strings.TrimSpace(webAPIVersion),
		naming:        detectStateNaming(webAPIVersion),
	}

	log.Debug().
		Str("host", redact.URLString(cfg.Host)).
		Str("webAPIVersion", client.webAPIVersion).
		Stringer("stateNaming", client.naming).
		Msg("qBittorrent client created successfully")

	return client, nil
}

// detectStateNaming picks the terminal state names the WebAPI version reports.
// An empty or unparseable version yields namingUnknown.
func detectStateNaming(webAPIVersion string) stateNaming {
	v, err := semver.NewVersion(strings.TrimSpace(webAPIVersion))
	if err != nil {
		return namingUnknown
	}
	if v.LessThan(semver.MustParse(stoppedStatesMinWebAPI)) {
		return namingPaused
	}
	return namingStopped
}

// WebAPIVersion returns the version reported at login, or "" when unknown.
func (c *Client) WebAPIVersion() string {
	return c.webAPIVersion
}

// Torrents lists the torrents of category. An empty category lists everything.
// A state outside the instance's naming generation fails the listing with a
// *models.UnknownStatusError.
func (c *Client) Torrents(ctx context.Context, category string) ([]models.Torrent, error) {
	torrents, err := c.api.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Category: category})
	if err != nil {
		return nil, errors.Wrapf(redact.URLError(err), "failed to list torrents of category %q", category)
	}

	out := make([]models.Torrent, 0, len(torrents))
	for _, t := range torrents {
		converted, err := toModel(t, c.naming)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}

	return out, nil
}

// DeleteTorrents removes torrents in one call. No hashes is a no-op.
func (c *Client) DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error {
	hashes = hashutil.NormalizeAll(hashes)
	if len(hashes) == 0 {
		return nil
	}
	if err := c.api.DeleteTorrentsCtx(ctx, hashes, deleteFiles); err != nil {
		return errors.Wrapf(redact.URLError(err), "failed to delete %d torrents", len(hashes))
	}
	return nil
}

// SetForceStart toggles force-start for torrents in one call. No hashes is a no-op.
func (c *Client) SetForceStart(ctx context.Context, hashes []string, value bool) error {
	hashes = hashutil.NormalizeAll(hashes)
	if len(hashes) == 0 {
		return nil
	}
	if err := c.api.SetForceStartCtx(ctx, hashes, value); err != nil {
		return errors.Wrapf(redact.URLError(err), "failed to set force start on %d torrents", len(hashes))
	}
	return nil
}
