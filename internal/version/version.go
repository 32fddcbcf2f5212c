package version

import (
	"runtime/debug"
	"strings"
)

// Version will be set during build time via ldflags, fallback to build info
var Version = "dev"

// BuildTime will be set during build time via ldflags
var BuildTime = "unknown"

// GitCommit will be set during build time via ldflags
var GitCommit = "unknown"

// GetVersionInfo returns the release version. Without ldflags it falls back
// to the module version recorded by `go install`.
func GetVersionInfo() string {
	if Version != "dev" {
		return strings.TrimPrefix(Version, "v")
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return strings.TrimPrefix(v, "v")
		}
	}
	return Version
}

// GetFullVersionInfo returns detailed version information
func GetFullVersionInfo() string {
	version := GetVersionInfo()
	commit := GitCommit
	if commit == "unknown" {
		commit = vcsRevision()
	}

	if BuildTime != "unknown" && commit != "unknown" {
		return version + " (built " + BuildTime + ", commit " + commit + ")"
	}
	if commit != "unknown" {
		return version + " (commit " + commit + ")"
	}
	return version
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return "unknown"
}
