//go:build windows

package fs

// ShouldSkipEntry reports whether a directory walk must never enter or read an
// entry, even when hidden files are included (system reparse points such as
// compatibility junctions).
func ShouldSkipEntry(fullPath, name string) bool {
	if fullPath == "" && name == "" {
		return false
	}

	attrs, err := getFileAttributes(fullPath, name)
	if err != nil {
		return false
	}

	const protectedMask = fileAttributeSystem | fileAttributeReparsePoint
	return attrs&protectedMask == protectedMask
}
