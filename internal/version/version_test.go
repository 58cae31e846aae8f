package version

import (
	"strings"
	"testing"
)

func TestGetVersion_LdflagsWin(t *testing.T) {
	saved := Version
	defer func() { Version = saved }()

	Version = "v1.2.3"
	if got := GetVersion(); got != "v1.2.3" {
		t.Errorf("Expected v1.2.3, got %s", got)
	}
	if got := Short(); got != "v1.2.3" {
		t.Errorf("Expected Short to match GetVersion, got %s", got)
	}
}

func TestGetVersion_NeverEmpty(t *testing.T) {
	saved := Version
	defer func() { Version = saved }()

	Version = ""
	if got := GetVersion(); got == "" {
		t.Error("GetVersion should never be empty")
	}
}

func TestGetFullVersion(t *testing.T) {
	saved, savedCommit := Version, Commit
	defer func() { Version, Commit = saved, savedCommit }()

	Version = "v0.4.0"
	Commit = "abc123"
	full := GetFullVersion()
	if !strings.HasPrefix(full, "v0.4.0 ") || !strings.Contains(full, "commit: abc123") {
		t.Errorf("Unexpected full version: %s", full)
	}
}
