// Package buildinfo carries version data stamped in at link time:
//
//	-X 'github.com/m3rciful/raidbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/raidbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/raidbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "local"
	// Date is RFC3339; empty for local builds.
	Date = ""
)

// String renders the build for --version output.
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, Date)
}
