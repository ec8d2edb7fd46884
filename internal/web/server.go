package web

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gammasurf/gamma/internal/assets"
	"github.com/gammasurf/gamma/internal/config"
	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/logging"
	"github.com/gammasurf/gamma/internal/ops"
	"github.com/gammasurf/gamma/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewServer creates and configures the HTTP server for the dataset viewer.
// database may be nil; the index routes then answer INDEX_UNAVAILABLE.
func NewServer(store dataset.Store, database *sql.DB, cfg *config.Config, logger *slog.Logger, version string) *http.Server {
	if logger == nil {
		logger = logging.Discard()
	}
	h := newHandlers(store, database, cfg, logger, version)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleReport)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /structures", h.HandleStructures)
	mux.HandleFunc("GET /structures/{filename}", h.HandleStructure)
	mux.HandleFunc("GET /inventory", h.HandleInventory)
	mux.HandleFunc("GET /history", h.HandleHistory)

	root := cfg.ResolveAssetRoot()
	for _, dir := range assetDirs(cfg) {
		prefix := "/" + dir + "/"
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, noDirListing(http.FileServer(http.Dir(filepath.Join(root, filepath.FromSlash(dir)))))))
	}

	handler := requestLogging(logger, securityHeaders(mux))

	return &http.Server{
		Addr:              cfg.ServeAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newHandlers(store dataset.Store, database *sql.DB, cfg *config.Config, logger *slog.Logger, version string) *Handlers {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return &Handlers{
		store:    store,
		db:       database,
		oracle:   assets.NewFS(cfg.ResolveAssetRoot()),
		reports:  report.NewRenderer(ops.ReportOptions(cfg), logger),
		renderer: NewRenderer(templateSub, version, logger),
	}
}

// assetDirs returns the distinct, non-empty asset directories to serve.
func assetDirs(cfg *config.Config) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, d := range []string{cfg.ImagesDir, cfg.StructureDir} {
		d = strings.Trim(path.Clean("/"+filepath.ToSlash(d)), "/")
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return dirs
}

// noDirListing answers 404 for directory requests.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds security-related HTTP headers to all responses.
// The report page carries its stylesheet inline.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("viewer running", "url", "http://"+srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
