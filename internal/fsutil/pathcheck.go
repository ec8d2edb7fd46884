package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gammasurf/gamma/internal/errors"
)

// ValidateOutputPath checks a user-supplied output path: it must be set, free of
// ".." components, carry one of the allowed extensions and not be a symlink.
func ValidateOutputPath(path string, exts ...string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if ContainsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if len(exts) > 0 {
		ext := strings.ToLower(filepath.Ext(cleaned))
		ok := false
		for _, want := range exts {
			if ext == want {
				ok = true
				break
			}
		}
		if !ok {
			return errors.NewInvalidRequest(fmt.Sprintf("path must have extension %s", strings.Join(exts, " or ")))
		}
	}

	if info, err := os.Lstat(cleaned); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// ContainsTraversal checks if path contains a ".." component.
func ContainsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// SafeComponent reports whether name can be used as a single path component
// (no separators, not "." or "..", no control characters).
func SafeComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return false
		}
	}
	return true
}

// SanitizeForFilename sanitizes a string for safe use in a filename.
func SanitizeForFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	s = result.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if s == "" {
		s = "unnamed"
	}
	return s
}
