// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/seedkeeper/internal/domain"
)

// ResolveLogLevel maps the configured level onto zerolog. DEBUG=1 always wins.
func ResolveLogLevel(cfg *domain.Config) zerolog.Level {
	if cfg.Debug {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// SetupLogging points the global logger at stderr and, when LogPath is set, a
// rotating log file. The returned closer is nil without a log file.
func SetupLogging(cfg *domain.Config) (io.Closer, error) {
	zerolog.SetGlobalLevel(ResolveLogLevel(cfg))

	base := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	writer, closer, err := buildWriter(base, cfg.LogPath, cfg.LogMaxSize, cfg.LogMaxBackups)
	if err != nil {
		return nil, err
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	return closer, nil
}

func buildWriter(base io.Writer, logPath string, maxSize, maxBackups int) (io.Writer, io.Closer, error) {
	if logPath == "" {
		return base, nil, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	if maxSize <= 0 {
		maxSize = 50
	}
	if maxBackups < 0 {
		maxBackups = 0
	}

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
	return io.MultiWriter(base, rotator), rotator, nil
}
