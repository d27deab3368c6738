// Package version records the application version.
package version

// Version is the application version. Overridden at build time via
// -ldflags "-X github.com/aristath/papertrade/internal/version.Version=v1.2.3".
var Version = "dev"
