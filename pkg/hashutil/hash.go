// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hashutil normalizes torrent info hashes before they are compared or
// sent back to the torrent client.
package hashutil

import "strings"

// Normalize trims whitespace and lowercases hash. A blank hash yields "".
func Normalize(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// NormalizeAll normalizes hashes, dropping blanks and duplicates while keeping
// the order of first occurrence.
func NormalizeAll(hashes []string) []string {
	if len(hashes) == 0 {
		return nil
	}

	result := make([]string, 0, len(hashes))
	seen := make(map[string]struct{}, len(hashes))

	for _, hash := range hashes {
		normalized := Normalize(hash)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}

	return result
}
