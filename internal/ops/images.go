package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gammasurf/gamma/internal/config"
	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/fsutil"
	"github.com/gammasurf/gamma/internal/structure"
)

// FixImagePathsInput contains parameters for the FixImagePaths operation.
// Empty ImagesDir and ImageExt fall back to the configuration.
type FixImagePathsInput struct {
	ImagesDir string
	ImageExt  string

	// OnlyMissing leaves planes that already reference an image untouched.
	OnlyMissing bool
	DryRun      bool
}

// FixImagePathsOutput contains the result of the FixImagePaths operation.
type FixImagePathsOutput struct {
	Updated    int      `json:"updated"`
	Structures []string `json:"structures"`
	Saved      bool     `json:"saved"`
}

// FixImagePaths points every plane at its canonical image location
// <images_dir>/<filename>/plane_h_k_l.<ext>.
func FixImagePaths(store dataset.Store, cfg *config.Config, input FixImagePathsInput) (*FixImagePathsOutput, error) {
	imagesDir := firstNonEmpty(input.ImagesDir, cfg.ImagesDir)
	ext := strings.TrimPrefix(firstNonEmpty(input.ImageExt, cfg.ImageExt), ".")
	if imagesDir == "" || ext == "" {
		return nil, errors.NewInvalidRequest("images directory and image extension are required")
	}

	out := &FixImagePathsOutput{Structures: []string{}}
	saved, err := mutate(store, input.DryRun, func(ds *dataset.Dataset) (bool, error) {
		for i := range ds.Files {
			s := &ds.Files[i]
			touched := false
			for j := range s.HKLs {
				p := &s.HKLs[j]
				if p.Key == nil {
					return false, errors.NewInvalidRecord(s.Filename, fmt.Sprintf("hkls[%d]: missing plane", j))
				}
				if input.OnlyMissing && p.Image != "" {
					continue
				}
				canonical := structure.CanonicalImagePath(imagesDir, s.Filename, *p.Key, ext)
				if p.Image != canonical {
					p.Image = canonical
					out.Updated++
					touched = true
				}
			}
			if touched {
				out.Structures = append(out.Structures, s.Filename)
			}
		}
		return out.Updated > 0, nil
	})
	if err != nil {
		return nil, err
	}
	out.Saved = saved
	return out, nil
}

// EnsureImageDirsInput contains parameters for the EnsureImageDirs operation.
type EnsureImageDirsInput struct {
	// Root is the asset root; empty falls back to the configuration.
	Root      string
	ImagesDir string

	// IncludeEmpty also creates folders for records without planes.
	IncludeEmpty bool
}

// EnsureImageDirsOutput contains the result of the EnsureImageDirs operation.
type EnsureImageDirsOutput struct {
	Created  []string `json:"created"`
	Existing int      `json:"existing"`
	Skipped  []string `json:"skipped"`
}

// EnsureImageDirs creates <root>/<images_dir>/<filename>/ for every record so
// plane images can be dropped in place. Filenames that are not a single safe
// path component are skipped and reported.
func EnsureImageDirs(store dataset.Store, cfg *config.Config, input EnsureImageDirsInput) (*EnsureImageDirsOutput, error) {
	root := firstNonEmpty(input.Root, cfg.ResolveAssetRoot())
	imagesDir := firstNonEmpty(input.ImagesDir, cfg.ImagesDir)
	if fsutil.ContainsTraversal(imagesDir) {
		return nil, errors.NewInvalidRequest("images directory must not contain directory traversal (..)")
	}

	ds, err := store.Load()
	if err != nil {
		return nil, err
	}

	out := &EnsureImageDirsOutput{Created: []string{}, Skipped: []string{}}
	for _, s := range ds.Files {
		if len(s.HKLs) == 0 && !input.IncludeEmpty {
			continue
		}
		if !fsutil.SafeComponent(s.Filename) {
			out.Skipped = append(out.Skipped, s.Filename)
			continue
		}
		dir := filepath.Join(root, filepath.FromSlash(imagesDir), s.Filename)
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("%s exists and is not a directory", dir))
			}
			out.Existing++
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("failed to create %s: %w", dir, err))
		}
		out.Created = append(out.Created, dir)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
