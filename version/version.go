// Package version exposes build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/grovetools/slotsync/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo collects the linker values and runtime details.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short is the one-line form, e.g. "slotsync v0.3.0 (abc1234)".
func (i Info) Short() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("slotsync %s (%s)", i.Version, commit)
}

func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Short())
	fmt.Fprintf(&b, "\n  built:    %s", i.BuildDate)
	fmt.Fprintf(&b, "\n  go:       %s", i.GoVersion)
	fmt.Fprintf(&b, "\n  platform: %s", i.Platform)
	return b.String()
}

// UserAgent identifies slotsync in outgoing HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("slotsync/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
