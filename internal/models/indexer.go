// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

// Indexer is an upstream feed owned by the indexer control service.
type Indexer struct {
	ID             int    `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Identifier     string `json:"identifier" yaml:"identifier"`
	Implementation string `json:"implementation" yaml:"implementation"`
	Enabled        bool   `json:"enabled" yaml:"enabled"`
}
