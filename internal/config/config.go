package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// Dataset is the path of the JSON dataset file.
	// Relative paths resolve against the working directory.
	Dataset string `json:"dataset"`

	// AssetRoot is the directory asset references resolve against.
	// Empty means the directory holding the dataset file.
	AssetRoot string `json:"asset_root,omitempty"`

	// ImagesDir is the asset-root-relative directory holding per-structure plane images.
	ImagesDir string `json:"images_dir"`

	// ImageExt is the extension used for canonical plane image names (no dot).
	ImageExt string `json:"image_ext"`

	// StructureDir and StructureExt locate the viewer structure file of a record:
	// <StructureDir>/<filename>.<StructureExt>.
	StructureDir string `json:"structure_dir"`
	StructureExt string `json:"structure_ext"`

	// ReportPath is where `build` writes the HTML report.
	ReportPath string `json:"report_path"`

	// ReportTitle is the page heading of the report.
	ReportTitle string `json:"report_title"`

	// ReportIntro is optional markdown rendered above the structure list.
	ReportIntro string `json:"report_intro,omitempty"`

	// Report sections are shown unless hidden here.
	HideGallery       bool `json:"hide_gallery,omitempty"`
	HidePlanes        bool `json:"hide_planes,omitempty"`
	HideStructureLink bool `json:"hide_structure_link,omitempty"`

	// IndexPath is the SQLite index file. Empty means <base dir>/index.db.
	IndexPath string `json:"index_path,omitempty"`

	// ServeAddr is the listen address of the web viewer.
	ServeAddr string `json:"serve_addr"`

	// DBMaxOpenConns limits the maximum number of open index connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle index connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type prefixes to disable entirely.
	// Known types: "structure", "hkl", "dataset", "report".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Dataset:      "data.json",
		ImagesDir:    "images",
		ImageExt:     "jpg",
		StructureDir: "cif",
		StructureExt: "xyz",
		ReportPath:   "index.html",
		ReportTitle:  "Crystal Structures",
		ServeAddr:    "127.0.0.1:8080",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.gamma.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.gamma) and repo (.gamma) directories.
// Repo config is found by walking upward from startDir to find the nearest .gamma/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .gamma/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".gamma", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ResolveAssetRoot returns AssetRoot, or the dataset's directory when unset.
func (c *Config) ResolveAssetRoot() string {
	if c.AssetRoot != "" {
		return c.AssetRoot
	}
	return filepath.Dir(c.Dataset)
}

// ResolveIndexPath returns IndexPath, or baseDir/index.db when unset.
func (c *Config) ResolveIndexPath(baseDir string) string {
	if c.IndexPath != "" {
		return c.IndexPath
	}
	return filepath.Join(baseDir, "index.db")
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.Dataset = pick(overlay.Dataset, base.Dataset)
	result.AssetRoot = pick(overlay.AssetRoot, base.AssetRoot)
	result.ImagesDir = pick(overlay.ImagesDir, base.ImagesDir)
	result.ImageExt = strings.TrimPrefix(pick(overlay.ImageExt, base.ImageExt), ".")
	result.StructureDir = pick(overlay.StructureDir, base.StructureDir)
	result.StructureExt = strings.TrimPrefix(pick(overlay.StructureExt, base.StructureExt), ".")
	result.ReportPath = pick(overlay.ReportPath, base.ReportPath)
	result.ReportTitle = pick(overlay.ReportTitle, base.ReportTitle)
	result.ReportIntro = pick(overlay.ReportIntro, base.ReportIntro)
	result.IndexPath = pick(overlay.IndexPath, base.IndexPath)
	result.ServeAddr = pick(overlay.ServeAddr, base.ServeAddr)
	result.LogLevel = pick(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pick(overlay.LogFormat, base.LogFormat)

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.HideGallery = base.HideGallery || overlay.HideGallery
	result.HidePlanes = base.HidePlanes || overlay.HidePlanes
	result.HideStructureLink = base.HideStructureLink || overlay.HideStructureLink

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pick(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
