// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildinfo exposes the seedkeeper build stamp. Release builds set the
// variables with -ldflags; `go install` builds fall back to the module and VCS
// data embedded by the toolchain.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
)

const devVersion = "0.0.0-dev"

var (
	// Version is the release version, e.g. "v1.2.0".
	Version = devVersion
	// Commit is the VCS revision the binary was built from.
	Commit = ""
	// Date is the build timestamp in RFC 3339.
	Date = ""
	// UserAgent is sent on outgoing autobrr API requests.
	UserAgent = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		Version, Commit, Date = fromModule(info, Version, Commit, Date)
	}
	UserAgent = fmt.Sprintf("seedkeeper/%s (%s %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// fromModule fills the stamp values left unset by -ldflags from the embedded
// module and VCS settings.
func fromModule(info *debug.BuildInfo, version, commit, date string) (string, string, string) {
	if version == devVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "" {
				date = s.Value
			}
		}
	}
	return version, commit, date
}

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
}

func String() string {
	return fmt.Sprintf("Version: %v\nCommit: %v\nBuild date: %s\nGo version: %s\n", Version, Commit, Date, runtime.Version())
}

func JSON() ([]byte, error) {
	return json.Marshal(buildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
	})
}
