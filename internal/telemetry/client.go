// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package telemetry answers windowed upload-rate averages from Prometheus.
package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/sharedhttp"
	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedkeeper/pkg/redact"
)

// Outcome tells a measured average apart from the two ways of having none.
type Outcome int

const (
	// OutcomeMeasured means at least one sample existed in the window.
	OutcomeMeasured Outcome = iota
	// OutcomeNoData means the query succeeded but the window was empty.
	OutcomeNoData
	// OutcomeFailed means the query itself failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMeasured:
		return "measured"
	case OutcomeNoData:
		return "no_data"
	case OutcomeFailed:
		return "failed"
	default:
		return "Outcome(" + strconv.Itoa(int(o)) + ")"
	}
}

func (o Outcome) MarshalYAML() (any, error) {
	return o.String(), nil
}

// Average is the mean of every sample in a window. Value is 0 for both
// OutcomeNoData and OutcomeFailed, so callers comparing against a threshold
// treat an unmeasured torrent as idle.
type Average struct {
	Value   float64 `yaml:"value"`
	Samples int     `yaml:"samples"`
	Outcome Outcome `yaml:"outcome"`
	Err     error   `yaml:"-"`
}

// Measured reports whether the average is backed by real samples.
func (a Average) Measured() bool {
	return a.Outcome == OutcomeMeasured
}

type queryAPI interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...v1.Option) (model.Value, v1.Warnings, error)
}

// Config holds the options for constructing a Client.
type Config struct {
	Address string
	Timeout time.Duration
	// CacheTTL bounds how long an average is reused for an identical query.
	CacheTTL time.Duration
}

// Client queries Prometheus for range vectors and averages them.
type Client struct {
	api     queryAPI
	address string
	timeout time.Duration
	now     func() time.Time
	cache   *ttlcache.Cache[string, Average]
}

// NewClient constructs a Client for the Prometheus server at cfg.Address.
func NewClient(cfg Config) (*Client, error) {
	apiClient, err := api.NewClient(api.Config{
		Address:      cfg.Address,
		RoundTripper: sharedhttp.Transport,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create prometheus client for %s", redact.URLString(cfg.Address))
	}

	return newClient(v1.NewAPI(apiClient), cfg), nil
}

func newClient(q queryAPI, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &Client{
		api:     q,
		address: cfg.Address,
		timeout: timeout,
		now:     time.Now,
		cache:   ttlcache.New(ttlcache.Options[string, Average]{}.SetDefaultTTL(ttl)),
	}
}

// RangeQuery renders the range-vector selector expr[Ns].
func RangeQuery(expr string, window time.Duration) string {
	return fmt.Sprintf("%s[%ds]", expr, int64(window/time.Second))
}

// Selector renders metric{label="value"} with value quoted for PromQL.
func Selector(metric, label, value string) string {
	if label == "" {
		return metric
	}
	return fmt.Sprintf("%s{%s=%s}", metric, label, strconv.Quote(value))
}

// Average returns the mean of every sample of every series matched by expr
// over window. Failures are logged and reported as OutcomeFailed with Value 0.
func (c *Client) Average(ctx context.Context, expr string, window time.Duration) Average {
	query := RangeQuery(expr, window)
	if cached, ok := c.cache.Get(query); ok {
		return cached
	}

	avg := c.query(ctx, query)
	if avg.Outcome != OutcomeFailed {
		c.cache.Set(query, avg, ttlcache.DefaultTTL)
	}
	return avg
}

func (c *Client) query(ctx context.Context, query string) Average {
	queryCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, warnings, err := c.api.Query(queryCtx, query, c.now())
	if err != nil {
		err = redact.URLError(err)
		log.Error().Err(err).Str("query", query).Msg("Failed to query Prometheus")
		return Average{Outcome: OutcomeFailed, Err: err}
	}
	if len(warnings) > 0 {
		log.Warn().Strs("warnings", warnings).Str("query", query).Msg("Prometheus returned warnings")
	}

	total, samples, err := sumSamples(value)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to query Prometheus")
		return Average{Outcome: OutcomeFailed, Err: err}
	}
	if samples == 0 {
		return Average{Outcome: OutcomeNoData}
	}

	return Average{
		Value:   total / float64(samples),
		Samples: samples,
		Outcome: OutcomeMeasured,
	}
}

func sumSamples(value model.Value) (float64, int, error) {
	var (
		total   float64
		samples int
	)

	switch v := value.(type) {
	case model.Matrix:
		for _, stream := range v {
			for _, pair := range stream.Values {
				total += float64(pair.Value)
				samples++
			}
		}
	case model.Vector:
		for _, sample := range v {
			total += float64(sample.Value)
			samples++
		}
	case *model.Scalar:
		if v != nil {
			total, samples = float64(v.Value), 1
		}
	case nil:
	default:
		return 0, 0, fmt.Errorf("unsupported result type %s", strings.ToLower(value.Type().String()))
	}

	return total, samples, nil
}
