// Package version holds build identification stamped in at link time.
//
// Release builds override the defaults with
// -ldflags "-X github.com/detgeom/detgeom/internal/version.Version=v1.2.3".
package version

import "fmt"

var (
	// Version is the detgeom release version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the full build identification for -version output.
func String() string {
	return fmt.Sprintf("detgeom %s (%s, built %s)", Version, GitSHA, BuildTime)
}
