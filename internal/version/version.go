// Package version holds build metadata stamped in through -ldflags.
package version

var (
	// Version is the annotation-report release, "dev" for local builds.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
