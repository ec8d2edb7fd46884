package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env looks up an environment variable. os.LookupEnv satisfies it.
type Env func(key string) (string, bool)

// DotenvEnv returns an Env backed by the process environment, falling back to
// the values in the given .env files. Missing files are skipped; earlier files
// win over later ones.
func DotenvEnv(files ...string) (Env, error) {
	vals := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for k, v := range m {
			if _, ok := vals[k]; !ok {
				vals[k] = v
			}
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vals[key]
		return v, ok
	}, nil
}

// ApplyEnv overlays GAMMA_* variables onto a copy of cfg.
// Empty values are ignored.
func ApplyEnv(cfg *Config, env Env) *Config {
	overlay := &Config{
		Dataset:      getEnv(env, "GAMMA_DATASET"),
		AssetRoot:    getEnv(env, "GAMMA_ASSET_ROOT"),
		ImagesDir:    getEnv(env, "GAMMA_IMAGES_DIR"),
		ImageExt:     getEnv(env, "GAMMA_IMAGE_EXT"),
		StructureDir: getEnv(env, "GAMMA_STRUCTURE_DIR"),
		ReportPath:   getEnv(env, "GAMMA_REPORT_PATH"),
		IndexPath:    getEnv(env, "GAMMA_INDEX_PATH"),
		ServeAddr:    getEnv(env, "GAMMA_SERVE_ADDR"),
		LogLevel:     getEnv(env, "GAMMA_LOG_LEVEL"),
		LogFormat:    getEnv(env, "GAMMA_LOG_FORMAT"),
	}
	return Merge(cfg, overlay)
}

func getEnv(env Env, key string) string {
	if env == nil {
		return ""
	}
	v, ok := env(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
