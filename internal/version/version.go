// Package version carries build version information, set via ldflags.
package version

import "strings"

var (
	version = "dev"
	commit  = ""
)

// Get returns a human readable version string.
func Get() string {
	v := version
	if c := strings.TrimSpace(commit); c != "" {
		if len(c) > 12 {
			c = c[:12]
		}
		v += " (" + c + ")"
	}
	return v
}
