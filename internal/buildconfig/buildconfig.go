package buildconfig

import "runtime/debug"

// Set with -ldflags "-X github.com/Harshitk-cp/pfc/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = ""
)

func Version() string {
	return version
}

// Commit is the ldflags value, or the VCS revision the toolchain stamped
// into the binary when none was given.
func Commit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func VersionInfo() map[string]string {
	return map[string]string{
		"service": "pfc",
		"version": Version(),
		"commit":  Commit(),
	}
}
