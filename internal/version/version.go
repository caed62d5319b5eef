// Package version reports build metadata.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/thecafe/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/thecafe/internal/version.Commit=abc123
//	  -X github.com/soyeahso/thecafe/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo is the build metadata reported by the CLI and the gateway.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata. Without ldflags the commit and date
// fall back to the VCS stamp embedded by the go tool.
func Get() BuildInfo {
	b := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if b.Commit != "unknown" {
		return b
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Commit = s.Value
		case "vcs.time":
			if b.Date == "unknown" {
				b.Date = s.Value
			}
		}
	}
	return b
}

// Info returns a formatted version string.
func Info() string {
	b := Get()
	return fmt.Sprintf("thecafe %s (commit: %s, built: %s, %s)",
		b.Version, short(b.Commit), b.Date, b.Platform)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
