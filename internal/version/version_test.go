package version

import (
	"strings"
	"testing"
)

func TestGetVersionInfo_Ldflags(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v1.4.0"
	if got := GetVersionInfo(); got != "1.4.0" {
		t.Errorf("Expected 1.4.0, got %q", got)
	}
}

func TestGetFullVersionInfo(t *testing.T) {
	origV, origB, origC := Version, BuildTime, GitCommit
	defer func() { Version, BuildTime, GitCommit = origV, origB, origC }()

	Version = "1.4.0"
	BuildTime = "2026-10-01"
	GitCommit = "abc1234"
	if got := GetFullVersionInfo(); got != "1.4.0 (built 2026-10-01, commit abc1234)" {
		t.Errorf("Unexpected full version %q", got)
	}

	BuildTime = "unknown"
	if got := GetFullVersionInfo(); !strings.HasPrefix(got, "1.4.0 (commit abc1234") {
		t.Errorf("Unexpected full version %q", got)
	}
}
