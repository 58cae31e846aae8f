package version

import (
	"fmt"
	"runtime/debug"
)

// Version information (set via ldflags during build)
var (
	// Version is the current version of restructor
	Version = "dev"

	// Commit is the git commit hash
	Commit = "unknown"

	// Date is the build date
	Date = "unknown"

	// BuiltBy indicates how the binary was built
	BuiltBy = "source"
)

// GetVersion returns the current version. Binaries installed with
// `go install` report their module version when no ldflags were given.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}

// Short returns a shortened version string (same as GetVersion for now)
func Short() string {
	return GetVersion()
}

// GetFullVersion returns the full version information
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, by: %s)",
		GetVersion(), Commit, Date, BuiltBy)
}
