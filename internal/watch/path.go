package watch

import "path/filepath"

// Normalize converts a platform-specific path into the canonical
// slash-separated form used for cache keys and glob matching.
// Two spellings of the same file on the same host normalize identically.
func Normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// relativeTo returns path relative to root in normalized form.
// If path is not under root, the normalized path is returned as-is.
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(filepath.FromSlash(root), filepath.FromSlash(path))
	if err != nil {
		return Normalize(path)
	}
	return filepath.ToSlash(rel)
}
