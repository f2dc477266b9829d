package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables will be injected at build time via ldflags
var (
	Version   = "dev"     // semantic version (e.g., v1.2.3)
	GitCommit = "unknown" // git commit hash
	BuildDate = "unknown" // build timestamp
)

// Info represents version information for a service
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetInfo returns version information. Without ldflags the commit falls back to the
// VCS revision stamped by the Go toolchain, when present.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if info.GitCommit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.GitCommit = s.Value
			case "vcs.time":
				if info.BuildDate == "unknown" {
					info.BuildDate = s.Value
				}
			}
		}
	}
	return info
}

// GetShortCommit returns the short git commit hash (first 7 characters)
func GetShortCommit() string {
	commit := GetInfo().GitCommit
	if len(commit) >= 7 {
		return commit[:7]
	}
	return commit
}

// String formats the build for startup logs.
func String() string {
	info := GetInfo()
	return fmt.Sprintf("%s (%s, built %s, %s)", info.Version, GetShortCommit(), info.BuildDate, info.GoVersion)
}
