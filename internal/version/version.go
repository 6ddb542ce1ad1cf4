package version

import (
	"runtime/debug"
)

// Set through -ldflags on release builds.
var (
	Version = "0.1.0"
	Commit  = ""
	Date    = ""
)

// Resolve returns the version string. Release builds report Version as is; development
// builds append the VCS revision recorded by the Go toolchain.
func Resolve() string {
	var settings map[string]string
	if info, ok := debug.ReadBuildInfo(); ok {
		settings = buildSettings(info.Settings)
	}
	return resolveVersion(Version, Commit, settings)
}

func resolveVersion(base, commit string, settings map[string]string) string {
	if base == "" {
		base = "0.0.0"
	}
	if commit != "" {
		return base
	}

	revision := settings["vcs.revision"]
	if revision == "" {
		return base
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}

	suffix := revision
	if settings["vcs.modified"] == "true" {
		suffix += "-dirty"
	}
	return base + "-" + suffix
}

func buildSettings(settings []debug.BuildSetting) map[string]string {
	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out
}
