// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package units formats byte quantities in a fixed binary unit.
package units

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidUnit is returned when a unit other than KB, MB, GB or TB is requested.
var ErrInvalidUnit = errors.New("invalid unit, choose from KB, MB, GB or TB")

var multipliers = map[string]float64{
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// FormatBytes renders value in the given unit with a fixed number of decimals,
// e.g. FormatBytes(1536, "KB", 2) == "1.50 KB".
func FormatBytes(value float64, unit string, decimals int) (string, error) {
	mult, ok := multipliers[unit]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(value/mult, 'f', decimals, 64) + " " + unit, nil
}

// KB formats value in kibibytes with two decimals.
func KB(value float64) string {
	return mustFormat(value, "KB")
}

// GB formats value in gibibytes with two decimals.
func GB(value float64) string {
	return mustFormat(value, "GB")
}

// Rate formats a bytes-per-second value, e.g. "10.00 KB/s".
func Rate(bytesPerSecond float64) string {
	return KB(bytesPerSecond) + "/s"
}

func mustFormat(value float64, unit string) string {
	s, err := FormatBytes(value, unit, 2)
	if err != nil {
		panic(err)
	}
	return s
}
