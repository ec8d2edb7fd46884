package ops

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/gammasurf/gamma/internal/config"
	"github.com/gammasurf/gamma/internal/db"
	"github.com/gammasurf/gamma/internal/errors"
)

func openIndex(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestBuild_WritesReportAndRecordsRun(t *testing.T) {
	files, oracle := statusFixture()
	store := newStore(files...)
	database := openIndex(t)
	cfg := config.DefaultConfig()
	cfg.ReportTitle = "Gamma Surface Calculations"

	outPath := filepath.Join(t.TempDir(), "site", "index.html")
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	out, err := Build(context.Background(), store, oracle, database, cfg, BuildInput{
		OutputPath:  outPath,
		DatasetPath: "data.json",
		Now:         now,
	})
	require.NoError(t, err)
	require.Len(t, out.RunID, 26)
	require.True(t, out.Recorded)
	require.Equal(t, 1, out.Counts.Partial)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	require.Equal(t, "Gamma Surface Calculations", doc.Find("h1").Text())
	require.Equal(t, 3, doc.Find(".card").Length())
	require.Equal(t, "Partial", doc.Find(`.card[data-filename="partial"]`).AttrOr("data-status", ""))

	hist, err := History(database, HistoryInput{})
	require.NoError(t, err)
	require.Len(t, hist.Runs, 1)
	require.Equal(t, out.RunID, hist.Runs[0].ID)
	require.Equal(t, now.Unix(), hist.Runs[0].CreatedAt)
	require.Equal(t, "data.json", hist.Runs[0].DatasetPath)
	require.Equal(t, 1, hist.Runs[0].Bad)
}

func TestBuild_WithoutIndex(t *testing.T) {
	files, oracle := statusFixture()
	outPath := filepath.Join(t.TempDir(), "report.html")

	out, err := Build(context.Background(), newStore(files...), oracle, nil, config.DefaultConfig(), BuildInput{OutputPath: outPath})
	require.NoError(t, err)
	require.False(t, out.Recorded)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
}

func TestBuild_RejectsBadPath(t *testing.T) {
	store := newStore()
	for _, p := range []string{"report.txt", "../report.html", ""} {
		cfg := config.DefaultConfig()
		cfg.ReportPath = ""
		_, err := Build(context.Background(), store, nil, nil, cfg, BuildInput{OutputPath: p})
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "path %q: %v", p, err)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outPath := filepath.Join(t.TempDir(), "report.html")

	_, err := Build(ctx, newStore(), nil, nil, config.DefaultConfig(), BuildInput{OutputPath: outPath})
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(outPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestReportOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HidePlanes = true
	cfg.ReportIntro = "intro"

	opts := ReportOptions(cfg)
	require.True(t, opts.ShowGallery)
	require.False(t, opts.ShowPlanes)
	require.True(t, opts.ShowStructureLink)
	require.Equal(t, "intro", opts.IntroMarkdown)
	require.Equal(t, "cif", opts.StructureDir)
	require.Equal(t, "xyz", opts.StructureExt)
}
