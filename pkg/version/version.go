// Package version reports the build version of the iter2tail binary.
package version

import "runtime/debug"

// Set through -ldflags "-X github.com/Sumatoshi-tech/iter2tail/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Init fills unset values from the module build info, so that binaries
// installed with `go install` still report something useful.
func Init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// String renders the version line printed by `iter2tail version`.
func String() string {
	return "iter2tail " + Version + " (commit: " + Commit + ", built: " + Date + ")"
}
