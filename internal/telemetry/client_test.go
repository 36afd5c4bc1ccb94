// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueryAPI struct {
	value   model.Value
	err     error
	calls   int
	queries []string
}

func (f *fakeQueryAPI) Query(_ context.Context, query string, _ time.Time, _ ...v1.Option) (model.Value, v1.Warnings, error) {
	f.calls++
	f.queries = append(f.queries, query)
	return f.value, nil, f.err
}

func matrix(values ...float64) model.Matrix {
	stream := &model.SampleStream{Metric: model.Metric{"name": "x"}}
	for i, v := range values {
		stream.Values = append(stream.Values, model.SamplePair{
			Timestamp: model.Time(int64(i) * 60_000),
			Value:     model.SampleValue(v),
		})
	}
	return model.Matrix{stream}
}

func TestRangeQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "qbittorrent_torrent_upload_speed_bytes[43200s]",
		RangeQuery("qbittorrent_torrent_upload_speed_bytes", 12*time.Hour))
	assert.Equal(t, `qbittorrent_torrent_upload_speed_bytes{name="Some \"Quoted\" Name"}`,
		Selector("qbittorrent_torrent_upload_speed_bytes", "name", `Some "Quoted" Name`))
	assert.Equal(t, "up", Selector("up", "", "ignored"))
}

func TestAverageMeasured(t *testing.T) {
	t.Parallel()

	fake := &fakeQueryAPI{value: matrix(1024, 2048, 3072)}
	c := newClient(fake, Config{})

	avg := c.Average(context.Background(), "metric", 10*time.Second)
	assert.Equal(t, OutcomeMeasured, avg.Outcome)
	assert.True(t, avg.Measured())
	assert.Equal(t, 3, avg.Samples)
	assert.InDelta(t, 2048.0, avg.Value, 0.0001)
	assert.Equal(t, []string{"metric[10s]"}, fake.queries)
}

func TestAverageAcrossSeries(t *testing.T) {
	t.Parallel()

	m := append(matrix(100, 300), matrix(200)...)
	c := newClient(&fakeQueryAPI{value: m}, Config{})

	avg := c.Average(context.Background(), "metric", time.Minute)
	assert.Equal(t, 3, avg.Samples)
	assert.InDelta(t, 200.0, avg.Value, 0.0001)
}

func TestAverageNoData(t *testing.T) {
	t.Parallel()

	for name, value := range map[string]model.Value{
		"empty matrix": model.Matrix{},
		"nil":          nil,
		"empty stream": model.Matrix{&model.SampleStream{}},
	} {
		c := newClient(&fakeQueryAPI{value: value}, Config{})
		avg := c.Average(context.Background(), "metric", time.Minute)
		assert.Equal(t, OutcomeNoData, avg.Outcome, name)
		assert.Zero(t, avg.Value, name)
		assert.NoError(t, avg.Err, name)
	}
}

func TestAverageFailed(t *testing.T) {
	t.Parallel()

	fake := &fakeQueryAPI{err: errors.New("connection refused")}
	c := newClient(fake, Config{})

	avg := c.Average(context.Background(), "metric", time.Minute)
	assert.Equal(t, OutcomeFailed, avg.Outcome)
	assert.Zero(t, avg.Value)
	assert.False(t, avg.Measured())
	require.Error(t, avg.Err)

	// failures are not cached
	c.Average(context.Background(), "metric", time.Minute)
	assert.Equal(t, 2, fake.calls)
}

func TestAverageUnsupportedResult(t *testing.T) {
	t.Parallel()

	c := newClient(&fakeQueryAPI{value: &model.String{Value: "nope"}}, Config{})
	avg := c.Average(context.Background(), "metric", time.Minute)
	assert.Equal(t, OutcomeFailed, avg.Outcome)
	assert.Zero(t, avg.Value)
}

func TestAverageIsCached(t *testing.T) {
	t.Parallel()

	fake := &fakeQueryAPI{value: matrix(10)}
	c := newClient(fake, Config{CacheTTL: time.Hour})

	first := c.Average(context.Background(), "metric", time.Minute)
	second := c.Average(context.Background(), "metric", time.Minute)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.calls)

	c.Average(context.Background(), "metric", 2*time.Minute)
	assert.Equal(t, 2, fake.calls)
}

func TestClientAgainstPrometheusAPI(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/v1/query", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, `qbittorrent_torrent_upload_speed_bytes{name="a"}[300s]`, r.Form.Get("query"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"matrix","result":[` +
			`{"metric":{"name":"a"},"values":[[1700000000,"4096"],[1700000060,"6144"]]}]}}`))
	}))
	defer server.Close()

	c, err := NewClient(Config{Address: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	avg := c.Average(context.Background(), Selector("qbittorrent_torrent_upload_speed_bytes", "name", "a"), 5*time.Minute)
	assert.Equal(t, OutcomeMeasured, avg.Outcome)
	assert.Equal(t, 2, avg.Samples)
	assert.InDelta(t, 5120.0, avg.Value, 0.0001)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","errorType":"bad_data","error":"parse error"}`))
	}))
	defer server.Close()

	c, err := NewClient(Config{Address: server.URL})
	require.NoError(t, err)

	avg := c.Average(context.Background(), "metric", time.Minute)
	assert.Equal(t, OutcomeFailed, avg.Outcome)
	assert.Zero(t, avg.Value)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "measured", OutcomeMeasured.String())
	assert.Equal(t, "no_data", OutcomeNoData.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}
