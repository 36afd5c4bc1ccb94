// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package seedpolicy

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/autobrr/seedkeeper/internal/domain"
	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/internal/telemetry"
)

const (
	kb = int64(1) << 10
	mb = int64(1) << 20
	gb = int64(1) << 30
)

const (
	testCategory = "autobrr"
	testMetric   = "qbittorrent_torrent_upload_speed_bytes"
)

func testConfig() *domain.Config {
	return &domain.Config{
		CategoryFilter:         testCategory,
		GlobalUploadThreshold:  500 * kb,
		GlobalHorizonSeconds:   3600,
		TorrentUploadThreshold: 10 * kb,
		TorrentHorizonSeconds:  86400,
		MaxCategorySize:        10 * gb,
		SizePolicy:             domain.SizePolicyRelaxed,
		IndexerFilter:          domain.IndexerFilterAll,
		UploadSpeedMetric:      testMetric,
		UploadSpeedNameLabel:   "name",
	}
}

type deleteCall struct {
	Hashes      []string
	DeleteFiles bool
}

type forceStartCall struct {
	Hashes []string
	Value  bool
}

// fakeStore serves snapshots in order and repeats the last one.
type fakeStore struct {
	mu          sync.Mutex
	snapshots   [][]models.Torrent
	listCalls   int
	listErr     error
	deleteErr   error
	deletes     []deleteCall
	forceStarts []forceStartCall
}

func newFakeStore(snapshots ...[]models.Torrent) *fakeStore {
	return &fakeStore{snapshots: snapshots}
}

func (f *fakeStore) Torrents(_ context.Context, _ string) ([]models.Torrent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	idx := f.listCalls
	f.listCalls++
	if len(f.snapshots) == 0 {
		return nil, nil
	}
	if idx >= len(f.snapshots) {
		idx = len(f.snapshots) - 1
	}
	out := make([]models.Torrent, len(f.snapshots[idx]))
	copy(out, f.snapshots[idx])
	return out, nil
}

func (f *fakeStore) DeleteTorrents(_ context.Context, hashes []string, deleteFiles bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, deleteCall{Hashes: hashes, DeleteFiles: deleteFiles})
	return f.deleteErr
}

func (f *fakeStore) SetForceStart(_ context.Context, hashes []string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forceStarts = append(f.forceStarts, forceStartCall{Hashes: hashes, Value: value})
	return nil
}

func (f *fakeStore) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes) + len(f.forceStarts)
}

// fakeTelemetry answers by expression; unknown expressions have no data.
type fakeTelemetry struct {
	averages map[string]telemetry.Average
	queries  []string
	windows  []time.Duration
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{averages: map[string]telemetry.Average{}}
}

func (f *fakeTelemetry) Average(_ context.Context, expr string, window time.Duration) telemetry.Average {
	f.queries = append(f.queries, expr)
	f.windows = append(f.windows, window)
	if avg, ok := f.averages[expr]; ok {
		return avg
	}
	return telemetry.Average{Outcome: telemetry.OutcomeNoData}
}

func (f *fakeTelemetry) setTorrent(name string, bytesPerSecond float64) {
	f.averages[telemetry.Selector(testMetric, "name", name)] = telemetry.Average{
		Value:   bytesPerSecond,
		Samples: 1,
		Outcome: telemetry.OutcomeMeasured,
	}
}

func (f *fakeTelemetry) setGlobal(bytesPerSecond float64) {
	f.averages[testMetric] = telemetry.Average{Value: bytesPerSecond, Samples: 1, Outcome: telemetry.OutcomeMeasured}
}

type setEnabledCall struct {
	ID      int
	Enabled bool
}

type fakeIndexers struct {
	indexers []models.Indexer
	listErr  error
	// failOn makes SetIndexerEnabled fail for this indexer ID.
	failOn int
	calls  []setEnabledCall
}

func (f *fakeIndexers) Indexers(context.Context) ([]models.Indexer, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.indexers, nil
}

func (f *fakeIndexers) SetIndexerEnabled(_ context.Context, id int, enabled bool) error {
	if f.failOn != 0 && id == f.failOn {
		return errIndexerPatch
	}
	f.calls = append(f.calls, setEnabledCall{ID: id, Enabled: enabled})
	return nil
}

type fakeRecorder struct {
	deleted      map[string]int
	forceStarted int
	failures     int
	toggles      []bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{deleted: map[string]int{}}
}

func (r *fakeRecorder) TorrentsDeleted(reason string, n int) { r.deleted[reason] += n }
func (r *fakeRecorder) TorrentsForceStarted(n int)           { r.forceStarted += n }
func (r *fakeRecorder) TorrentsClassified(int, int, int)     {}
func (r *fakeRecorder) TelemetryFailure()                    { r.failures++ }
func (r *fakeRecorder) ToggleDecided(bool, float64, int64)   {}
func (r *fakeRecorder) IndexerToggled(enabled bool)          { r.toggles = append(r.toggles, enabled) }

type harness struct {
	cfg      *domain.Config
	store    *fakeStore
	tel      *fakeTelemetry
	indexers *fakeIndexers
	recorder *fakeRecorder
	logs     *bytes.Buffer
}

func newHarness(cfg *domain.Config, snapshots ...[]models.Torrent) *harness {
	return &harness{
		cfg:      cfg,
		store:    newFakeStore(snapshots...),
		tel:      newFakeTelemetry(),
		recorder: newFakeRecorder(),
		logs:     &bytes.Buffer{},
	}
}

func (h *harness) service() *Service {
	logger := zerolog.New(h.logs).Level(zerolog.TraceLevel)
	opts := Options{
		Recorder: h.recorder,
		Logger:   &logger,
		Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	if h.indexers != nil {
		opts.Indexers = h.indexers
	}
	return NewService(h.cfg, h.store, h.tel, opts)
}

func torrent(name string, size int64, status models.TorrentStatus, eta int64) models.Torrent {
	return models.Torrent{
		Name:              name,
		Hash:              "hash-" + name,
		Size:              size,
		Category:          testCategory,
		Status:            status,
		RemainingSeedTime: eta,
	}
}
