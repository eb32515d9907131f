// Package version exposes the build version of the binary. The value is
// stamped at link time via -ldflags "-X ...".
package version

var version = "v0.0.0"

// Value returns the build version string.
func Value() string {
	return version
}
