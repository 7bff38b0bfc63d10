// Package version reports build information stamped in at link time.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build information, set with -ldflags "-X".
//
//nolint:gochecknoglobals // ldflags targets must be package variables
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:   Normalize(Version),
		Commit:    shortCommit(Commit),
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String formats the info on one line.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "walletvet %s", i.Version)
	if i.Commit != "" {
		fmt.Fprintf(&sb, " (%s", i.Commit)
		if i.Date != "" {
			fmt.Fprintf(&sb, ", %s", i.Date)
		}
		sb.WriteString(")")
	}
	fmt.Fprintf(&sb, " %s %s", i.GoVersion, i.Platform)
	return sb.String()
}

// Normalize trims whitespace and any leading 'v' prefixes. Empty versions
// are reported as "dev".
func Normalize(v string) string {
	for {
		trimmed := strings.TrimLeft(strings.TrimSpace(v), "v")
		if trimmed == v {
			break
		}
		v = trimmed
	}
	if v == "" {
		return "dev"
	}
	return v
}

func shortCommit(c string) string {
	c = strings.TrimSpace(c)
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
