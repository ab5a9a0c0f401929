// Package version holds build metadata set via -ldflags.
package version

// Version is the semantic version of the build.
var Version = "0.1.0-dev"
