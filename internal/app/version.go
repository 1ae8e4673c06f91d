package app

import (
	"fmt"
	"runtime"

	"github.com/tejashwikalptaru/archiveplayer/internal/metrics"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo contains version information for the application.
type VersionInfo struct {
	Version   string
	GitCommit string
	GitTag    string
	BuildTime string
	GoVersion string
}

// GetVersionInfo returns the current version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// Display returns the tag when the build has one, otherwise the version.
func (v VersionInfo) Display() string {
	if v.GitTag != "" {
		return v.GitTag
	}
	return v.Version
}

// FullString returns a detailed version string for logging.
func (v VersionInfo) FullString() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s)", AppName, v.Display(), v.GitCommit, v.BuildTime, v.GoVersion)
}

func publishVersionMetric() {
	v := GetVersionInfo()
	metrics.SetAppInfo(v.Display(), v.GitCommit, v.GoVersion)
}
