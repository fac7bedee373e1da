// Package buildinfo exposes version information about the running binary.
//
// Version can be injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv/internal/infra/buildinfo.Version=v1.0.0"
//
// Commit, Modified and GoVersion fall back to what the Go toolchain embeds
// in the binary when not set explicitly.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = ""

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Modified  bool   `json:"modified"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

var (
	once   sync.Once
	cached Info
)

// Get returns the build information.
func Get() Info {
	once.Do(func() {
		cached = Info{
			Version:   Version,
			Commit:    Commit,
			BuildTime: BuildTime,
			GoVersion: runtime.Version(),
		}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if cached.Commit == "" {
					cached.Commit = s.Value
				}
			case "vcs.modified":
				cached.Modified, _ = strconv.ParseBool(s.Value)
			case "vcs.time":
				if cached.BuildTime == "unknown" {
					cached.BuildTime = s.Value
				}
			}
		}
	})
	return cached
}

// ShortCommit returns the first 8 characters of the commit, or
// "00000000" when the commit is unknown.
func (i Info) ShortCommit() string {
	if i.Commit == "" {
		return "00000000"
	}
	if len(i.Commit) > 8 {
		return i.Commit[:8]
	}
	return i.Commit
}

// String returns a formatted version string.
func (i Info) String() string {
	return i.Version + " (" + i.ShortCommit() + ") built at " + i.BuildTime + " with " + i.GoVersion
}

// String returns the formatted version of the running binary.
func String() string {
	return Get().String()
}
