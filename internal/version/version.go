// Package version carries build metadata set through -ldflags.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Full returns the one-line version banner.
func Full() string {
	return fmt.Sprintf("meetsync %s, commit %s, built at %s", Version, Commit, Date)
}
