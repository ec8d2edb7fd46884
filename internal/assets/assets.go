// Package assets resolves asset references (plane images, structure files)
// against a directory on disk.
package assets

import (
	"os"
	"path/filepath"
	"strings"
)

// FS resolves references relative to Root.
type FS struct {
	Root string
}

// NewFS returns an FS rooted at root. An empty root means the working directory.
func NewFS(root string) *FS {
	if root == "" {
		root = "."
	}
	return &FS{Root: root}
}

// Path maps a reference to a filesystem path under Root. A leading "/" is
// ignored. ok is false for references that would escape Root.
func (f *FS) Path(ref string) (string, bool) {
	rel := strings.TrimLeft(strings.TrimSpace(ref), "/")
	if rel == "" {
		return "", false
	}
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(f.Root, rel), true
}

// Exists reports whether ref resolves to a regular file under Root.
func (f *FS) Exists(ref string) bool {
	p, ok := f.Path(ref)
	if !ok {
		return false
	}
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// WebPath returns the reference as a site-relative URL path (no leading "/").
func WebPath(ref string) string {
	return strings.TrimLeft(filepath.ToSlash(strings.TrimSpace(ref)), "/")
}
