// Package buildinfo carries version metadata injected at build time.
package buildinfo

import "fmt"

// Overridden via -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns a single-line description of the build.
func String() string {
	return fmt.Sprintf("themecheck %s (commit %s, built %s)", Version, Commit, Date)
}
