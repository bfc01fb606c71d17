package pipeline

import "strings"

// File extensions of the source and destination trees.
const (
	SourceExt = ".wiki"
	DestExt   = ".norg"
)

// IsSource reports whether name is a VimWiki file.
func IsSource(name string) bool {
	return strings.HasSuffix(name, SourceExt)
}

// DestPath maps a source path (relative to the source root) to its
// destination path (relative to the destination root) by swapping the
// trailing extension. Directory components are left alone.
func DestPath(rel string) string {
	return strings.TrimSuffix(rel, SourceExt) + DestExt
}
