//go:build linux

// Package elevation checks whether the current process has the
// privileges a raw TUN device and "ip" invocations require.
package elevation

import "os"

// IsElevated reports whether the process is running as root.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// Hint is a user-facing suggestion for how to re-run with sufficient
// privileges.
func Hint() string {
	return "try again with sudo"
}
