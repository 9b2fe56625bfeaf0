package config

import (
	"fmt"
	"runtime/debug"
)

// Build metadata. Release builds set these with -ldflags "-X". Otherwise the
// commit and build time come from the VCS stamp of the main module, if any.
var (
	Version       = "dev"
	CommitHash    = ""
	BuildTime     = ""
	VersionString = versionString()
)

func versionString() string {
	commit, built := CommitHash, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
			case s.Key == "vcs.time" && built == "":
				built = s.Value
			}
		}
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit == "" {
		commit = "n/a"
	}
	if built == "" {
		built = "n/a"
	}
	return fmt.Sprintf("%s-%s (%s)", Version, commit, built)
}
