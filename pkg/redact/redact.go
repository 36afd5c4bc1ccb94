// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package redact removes credentials from URLs and errors before they are logged.
package redact

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

const placeholder = "REDACTED"

// sensitiveParams lists query parameter names whose values are never logged (case-insensitive).
var sensitiveParams = []string{"apikey", "api_key", "token", "password", "pass"}

var (
	sensitiveParamRegex   = regexp.MustCompile(`(?i)(apikey|api_key|token|password|pass)=([^&\s]*)`)
	userinfoPasswordRegex = regexp.MustCompile(`(://[^/:@\s]+):([^@\s]+)@`)
)

// URLString redacts userinfo passwords and sensitive query values in raw.
// Unparseable input falls back to String.
func URLString(raw string) string {
	if raw == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return String(raw)
	}

	modified := false

	if parsed.User != nil {
		if _, hasPass := parsed.User.Password(); hasPass {
			parsed.User = url.UserPassword(parsed.User.Username(), placeholder)
			modified = true
		}
	}

	query := parsed.Query()
	for key := range query {
		for _, param := range sensitiveParams {
			if strings.EqualFold(key, param) {
				query[key] = []string{placeholder}
				modified = true
			}
		}
	}

	if !modified {
		return raw
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// URLError returns err with the URL of a wrapped *url.Error redacted.
// Errors without a *url.Error are returned unchanged.
func URLError(err error) error {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: URLString(urlErr.URL),
			Err: urlErr.Err,
		}
	}

	return err
}

// String redacts sensitive values in free text such as error messages.
func String(s string) string {
	if s == "" {
		return s
	}
	result := sensitiveParamRegex.ReplaceAllString(s, "${1}="+placeholder)
	return userinfoPasswordRegex.ReplaceAllString(result, "${1}:"+placeholder+"@")
}
