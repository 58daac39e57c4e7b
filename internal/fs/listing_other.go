//go:build !windows

package fs

// ShouldSkipEntry is a no-op on non-Windows platforms.
func ShouldSkipEntry(_, _ string) bool {
	return false
}
