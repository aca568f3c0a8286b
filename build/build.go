// Package build reports the version of the running binary. Version and
// Commit are meant to be set with -ldflags, for example:
//
//	go build -ldflags "-X github.com/amp-labs/amp-fsm/build.Version=v1.2.3"
//
// When they are not set, the module and VCS data embedded by the Go
// toolchain is used instead.
package build

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

//nolint:gochecknoglobals
var (
	Version string
	Commit  string
)

// develVersion is what the toolchain reports for a binary built inside its
// own module.
const develVersion = "(devel)"

// Info describes the running binary.
type Info struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"` //nolint:tagliatelle
}

// Current returns the build info of the running binary.
func Current() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	return fromBuildInfo(info, bi)
}

// fromBuildInfo fills the gaps in info from bi.
func fromBuildInfo(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "" && bi.Main.Version != develVersion {
		info.Version = bi.Main.Version
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}

	return info
}

// ShortCommit is the first 7 characters of the commit hash.
func (i Info) ShortCommit() string {
	const short = 7

	if len(i.Commit) <= short {
		return i.Commit
	}

	return i.Commit[:short]
}

func (i Info) String() string {
	version := i.Version
	if version == "" {
		version = "dev"
	}

	commit := i.ShortCommit()

	switch {
	case commit == "":
		return fmt.Sprintf("%s (%s)", version, i.GoVersion)
	case i.Modified:
		return fmt.Sprintf("%s %s-dirty (%s)", version, commit, i.GoVersion)
	default:
		return fmt.Sprintf("%s %s (%s)", version, commit, i.GoVersion)
	}
}
