package filtering

import (
	"path/filepath"
	"strings"
)

// ExtensionFilter decides whether a file name carries a wanted extension
type ExtensionFilter interface {
	// Admit reports whether filename passes the allow-list.
	// An empty allow-list admits every name.
	Admit(filename string, allowed []string) bool
}

// defaultExtensionFilter implements ExtensionFilter with case-insensitive matching
type defaultExtensionFilter struct{}

var _ ExtensionFilter = (*defaultExtensionFilter)(nil)

// NewDefaultExtensionFilter creates a new defaultExtensionFilter
func NewDefaultExtensionFilter() ExtensionFilter {
	return &defaultExtensionFilter{}
}

// Admit reports whether filename passes the allow-list
func (*defaultExtensionFilter) Admit(filename string, allowed []string) bool {
	return Admit(filename, allowed)
}

// Admit reports whether the extension of filename case-insensitively matches
// one of the allowed extensions. Allowed entries may carry a leading dot.
// A name without an extension only passes an empty allow-list.
func Admit(filename string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	ext := Extension(filename)
	if ext == "" {
		return false
	}

	for _, candidate := range allowed {
		if strings.EqualFold(ext, NormalizeExtension(candidate)) {
			return true
		}
	}
	return false
}

// Extension returns the extension of the base name of filename without the leading dot
func Extension(filename string) string {
	return strings.TrimPrefix(filepath.Ext(filepath.Base(filename)), ".")
}

// NormalizeExtension trims whitespace and a single leading dot from an extension
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}
