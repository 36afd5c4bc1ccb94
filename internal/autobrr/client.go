// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package autobrr is a minimal client for the autobrr indexer API.
package autobrr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/sharedhttp"
	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/seedkeeper/internal/models"
	"github.com/autobrr/seedkeeper/pkg/redact"
)

const apiTokenHeader = "X-API-Token"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("autobrr %s %s returned status %d", e.Method, e.Endpoint, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Config holds the options for constructing a Client.
type Config struct {
	// Host is the API root, e.g. http://autobrr:7474/api.
	Host          string
	APIKey        string
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	HTTPClient    *http.Client
	UserAgent     string
}

// Client lists indexers and flips their enabled flag.
type Client struct {
	host          string
	apiKey        string
	httpClient    *http.Client
	userAgent     string
	retryAttempts uint
	retryDelay    time.Duration
}

// NewClient constructs a new Client using the provided configuration.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout, Transport: sharedhttp.Transport}
	}

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "seedkeeper"
	}

	return &Client{
		host:          strings.TrimRight(cfg.Host, "/"),
		apiKey:        cfg.APIKey,
		httpClient:    client,
		userAgent:     ua,
		retryAttempts: attempts,
		retryDelay:    delay,
	}
}

// Indexers returns every indexer configured in autobrr.
func (c *Client) Indexers(ctx context.Context) ([]models.Indexer, error) {
	endpoint, err := url.JoinPath(c.host, "indexer")
	if err != nil {
		return nil, errors.Wrap(err, "failed to build autobrr endpoint")
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var indexers []models.Indexer
	if err := json.Unmarshal(body, &indexers); err != nil {
		return nil, errors.Wrap(err, "failed to decode autobrr indexers")
	}

	return indexers, nil
}

// SetIndexerEnabled enables or disables the indexer with the given id.
func (c *Client) SetIndexerEnabled(ctx context.Context, id int, enabled bool) error {
	endpoint, err := url.JoinPath(c.host, "indexer", strconv.Itoa(id), "enabled")
	if err != nil {
		return errors.Wrap(err, "failed to build autobrr endpoint")
	}

	payload, err := json.Marshal(struct {
		Enabled bool `json:"enabled"`
	}{Enabled: enabled})
	if err != nil {
		return errors.Wrap(err, "failed to encode autobrr request")
	}

	_, err = c.do(ctx, http.MethodPatch, endpoint, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			var reqBody io.Reader
			if payload != nil {
				reqBody = bytes.NewReader(payload)
			}

			req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
			if err != nil {
				return retry.Unrecoverable(errors.Wrap(err, "failed to build autobrr request"))
			}
			req.Header.Set(apiTokenHeader, c.apiKey)
			req.Header.Set("User-Agent", c.userAgent)
			req.Header.Set("Accept", "application/json")
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return redact.URLError(err)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return errors.Wrap(err, "failed to read autobrr response")
			}

			if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
				statusErr := &StatusError{
					Method:     method,
					Endpoint:   redact.URLString(endpoint),
					StatusCode: resp.StatusCode,
					Body:       strings.TrimSpace(string(data)),
				}
				if resp.StatusCode < http.StatusInternalServerError {
					return retry.Unrecoverable(statusErr)
				}
				return statusErr
			}

			body = data
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("attempt", n+1).Str("method", method).Str("endpoint", redact.URLString(endpoint)).Msg("Retrying autobrr request")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "autobrr %s request failed", method)
	}

	return body, nil
}
