package main

import (
	"database/sql"
	"log/slog"
	"sync"

	"github.com/gammasurf/gamma/internal/assets"
	"github.com/gammasurf/gamma/internal/config"
	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/db"
	"github.com/gammasurf/gamma/internal/structure"
)

// session holds what commands share. The dataset store and the index are
// resolved on use so global flags can still change the configured paths.
type session struct {
	cfg     *config.Config
	baseDir string
	logger  *slog.Logger

	once sync.Once
	db   *sql.DB
}

func newSession(cfg *config.Config, baseDir string, logger *slog.Logger) *session {
	return &session{cfg: cfg, baseDir: baseDir, logger: logger}
}

// Store returns the file store for the configured dataset.
func (s *session) Store() dataset.Store {
	return dataset.NewFileStore(s.cfg.Dataset)
}

// Oracle resolves asset references against the configured asset root.
func (s *session) Oracle() structure.Oracle {
	return assets.NewFS(s.cfg.ResolveAssetRoot())
}

// Index opens the SQLite index on first use. It returns nil when the index
// cannot be opened; operations that need it then report INDEX_UNAVAILABLE.
func (s *session) Index() *sql.DB {
	s.once.Do(func() {
		path := s.cfg.ResolveIndexPath(s.baseDir)
		database, err := db.Open(path)
		if err != nil {
			s.logger.Warn("index unavailable", "path", path, "error", err)
			return
		}
		db.ConfigurePool(database, s.cfg)
		s.db = database
	})
	return s.db
}

// Close closes the index if it was opened.
func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}
