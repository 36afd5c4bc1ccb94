// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedkeeper/pkg/redact"
)

const namespace = "seedkeeper"

// Deletion reasons used as the "reason" label.
const (
	ReasonUploadThreshold = "upload_threshold"
	ReasonDiskQuota       = "disk_quota"
)

// Manager owns the registry of a single policy run.
type Manager struct {
	registry *prometheus.Registry

	torrentsDeleted      *prometheus.CounterVec
	torrentsForceStarted prometheus.Counter
	torrentsClassified   *prometheus.GaugeVec
	categoryUsedBytes    prometheus.Gauge
	globalUploadAverage  prometheus.Gauge
	telemetryFailures    prometheus.Counter
	indexerToggles       *prometheus.CounterVec
	indexersEnabled      prometheus.Gauge
	lastRunTimestamp     prometheus.Gauge
	lastRunSuccess       prometheus.Gauge
	simulation           prometheus.Gauge
}

func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Manager{
		registry: registry,
		torrentsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "torrents_deleted_total",
			Help:      "Torrents deleted by reason",
		}, []string{"reason"}),
		torrentsForceStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "torrents_force_started_total",
			Help:      "Completed torrents promoted back to forced seeding",
		}),
		torrentsClassified: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "torrents_classified",
			Help:      "Category torrents by classification in the last run",
		}, []string{"class"}),
		categoryUsedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_used_bytes",
			Help:      "Total size of the category after the last run",
		}),
		globalUploadAverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "global_upload_average_bytes_per_second",
			Help:      "Average aggregate upload rate over the global horizon",
		}),
		telemetryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_failures_total",
			Help:      "Telemetry queries that failed and were treated as zero",
		}),
		indexerToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexer_toggles_total",
			Help:      "Indexer state transitions by target state",
		}, []string{"state"}),
		indexersEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexers_desired_enabled",
			Help:      "1 when the last run wanted matching indexers enabled",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run completed without error",
		}),
		simulation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulation",
			Help:      "1 when the last run only simulated its actions",
		}),
	}

	registry.MustRegister(
		m.torrentsDeleted,
		m.torrentsForceStarted,
		m.torrentsClassified,
		m.categoryUsedBytes,
		m.globalUploadAverage,
		m.telemetryFailures,
		m.indexerToggles,
		m.indexersEnabled,
		m.lastRunTimestamp,
		m.lastRunSuccess,
		m.simulation,
	)

	return m
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) TorrentsDeleted(reason string, n int) {
	m.torrentsDeleted.WithLabelValues(reason).Add(float64(n))
}

func (m *Manager) TorrentsForceStarted(n int) {
	m.torrentsForceStarted.Add(float64(n))
}

func (m *Manager) TorrentsClassified(active, completed, excluded int) {
	m.torrentsClassified.WithLabelValues("active").Set(float64(active))
	m.torrentsClassified.WithLabelValues("completed").Set(float64(completed))
	m.torrentsClassified.WithLabelValues("excluded").Set(float64(excluded))
}

func (m *Manager) TelemetryFailure() {
	m.telemetryFailures.Inc()
}

func (m *Manager) ToggleDecided(enable bool, avgGlobalUpload float64, usedBytes int64) {
	m.indexersEnabled.Set(boolToFloat(enable))
	m.globalUploadAverage.Set(avgGlobalUpload)
	m.categoryUsedBytes.Set(float64(usedBytes))
}

func (m *Manager) IndexerToggled(enabled bool) {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	m.indexerToggles.WithLabelValues(state).Inc()
}

// RunFinished stamps the outcome of the run.
func (m *Manager) RunFinished(at time.Time, simulation bool, err error) {
	m.lastRunTimestamp.Set(float64(at.Unix()))
	m.simulation.Set(boolToFloat(simulation))
	m.lastRunSuccess.Set(boolToFloat(err == nil))
}

// Push sends the registry to a Prometheus Pushgateway, replacing the job's
// previous metrics.
func (m *Manager) Push(ctx context.Context, url, job string) error {
	pusher := push.New(url, job).Gatherer(m.registry)
	if err := pusher.PushContext(ctx); err != nil {
		return errors.Wrapf(redact.URLError(err), "failed to push metrics to %s", redact.URLString(url))
	}

	log.Debug().Str("url", redact.URLString(url)).Str("job", job).Msg("Pushed run metrics")
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
