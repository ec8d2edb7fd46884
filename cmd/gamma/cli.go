package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/ops"
	"github.com/gammasurf/gamma/internal/structure"
	"github.com/gammasurf/gamma/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(s *session) *cli.App {
	app := &cli.App{
		Name:    "gamma",
		Usage:   "Crystal structure dataset tool",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Usage: "Path of the JSON dataset (default from config)"},
			&cli.StringFlag{Name: "asset-root", Usage: "Directory asset references resolve against (default: the dataset's directory)"},
		},
		Before: func(c *cli.Context) error {
			if c.IsSet("dataset") {
				s.cfg.Dataset = c.String("dataset")
			}
			if c.IsSet("asset-root") {
				s.cfg.AssetRoot = c.String("asset-root")
			}
			return nil
		},
		Commands: []*cli.Command{
			normalizeCmd(s),
			fixImagesCmd(s),
			makeImageDirsCmd(s),
			stripExtCmd(s),
			listCmd(s),
			getCmd(s),
			addCmd(s),
			setCmd(s),
			deleteCmd(s),
			smilesCmd(s),
			addHKLCmd(s),
			statusCmd(s),
			buildCmd(s),
			indexCmd(s),
			inventoryCmd(s),
			historyCmd(s),
			exportXLSXCmd(s),
			serveCmd(s),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// normalizeCmd creates the normalize command.
func normalizeCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "Merge duplicate planes in every record",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Report changes without saving"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Normalize(s.Store(), ops.NormalizeInput{DryRun: c.Bool("dry-run")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// fixImagesCmd creates the fix-images command.
func fixImagesCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "fix-images",
		Usage: "Rewrite plane image references to <images-dir>/<filename>/plane_h_k_l.<ext>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "images-dir", Usage: "Images directory (default from config)"},
			&cli.StringFlag{Name: "ext", Usage: "Image extension (default from config)"},
			&cli.BoolFlag{Name: "only-missing", Usage: "Only fill planes without an image"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report changes without saving"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.FixImagePaths(s.Store(), s.cfg, ops.FixImagePathsInput{
				ImagesDir:   c.String("images-dir"),
				ImageExt:    c.String("ext"),
				OnlyMissing: c.Bool("only-missing"),
				DryRun:      c.Bool("dry-run"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// makeImageDirsCmd creates the make-image-dirs command.
func makeImageDirsCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "make-image-dirs",
		Usage: "Create one image folder per record under the asset root",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "Asset root (default from config)"},
			&cli.StringFlag{Name: "images-dir", Usage: "Images directory (default from config)"},
			&cli.BoolFlag{Name: "include-empty", Usage: "Also create folders for records without planes"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.EnsureImageDirs(s.Store(), s.cfg, ops.EnsureImageDirsInput{
				Root:         c.String("root"),
				ImagesDir:    c.String("images-dir"),
				IncludeEmpty: c.Bool("include-empty"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// stripExtCmd creates the strip-ext command.
func stripExtCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "strip-ext",
		Usage: "Remove a trailing .cif from every filename",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Report changes without saving"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.StripExtensions(s.Store(), ops.StripExtensionsInput{DryRun: c.Bool("dry-run")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List records in file order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefix", Aliases: []string{"p"}, Usage: "Filename prefix filter"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(s.Store(), ops.ListInput{
				Prefix: c.String("prefix"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// getCmd creates the get command.
func getCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one record with the availability of each plane image",
		ArgsUsage: "<filename>",
		Action: func(c *cli.Context) error {
			output, err := ops.Get(s.Store(), s.Oracle(), ops.GetInput{Filename: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// addCmd creates the add command.
func addCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Append a new record",
		ArgsUsage: "[options] <filename>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "smiles", Aliases: []string{"s"}, Usage: "SMILES descriptor"},
			&cli.StringFlag{Name: "path", Usage: "Source structure file, stored as the record's path"},
			&cli.StringFlag{Name: "hkls", Usage: `Plane observations as a JSON array, e.g. '[{"plane":[1,0,0],"distance":[2.1]}]'`},
		},
		Action: func(c *cli.Context) error {
			input := ops.AddInput{
				Filename: c.Args().First(),
				SMILES:   c.String("smiles"),
				Path:     c.String("path"),
			}
			if raw := c.String("hkls"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &input.HKLs); err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("--hkls: %v", err)))
				}
			}

			output, err := ops.Add(s.Store(), input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// setCmd creates the set command.
func setCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set an extra key on a record (JSON values are stored as JSON)",
		ArgsUsage: "<filename> <key> <value>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return outputError(errors.NewInvalidRequest("usage: gamma set <filename> <key> <value>"))
			}
			output, err := ops.SetInfo(s.Store(), ops.SetInfoInput{
				Filename: c.Args().Get(0),
				Key:      c.Args().Get(1),
				Value:    c.Args().Get(2),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove records",
		ArgsUsage: "<filename>...",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(s.Store(), ops.DeleteInput{Filenames: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// smilesCmd creates the smiles command.
func smilesCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "smiles",
		Usage:     "Replace the SMILES descriptor of a record",
		ArgsUsage: "<filename> <smiles>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: gamma smiles <filename> <smiles>"))
			}
			output, err := ops.UpdateSMILES(s.Store(), ops.UpdateSMILESInput{
				Filename: c.Args().Get(0),
				SMILES:   c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// addHKLCmd creates the add-hkl command.
func addHKLCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "add-hkl",
		Usage:     "Append a plane observation to a record",
		ArgsUsage: "[options] <filename>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "plane", Required: true, Usage: `Miller indices, e.g. "1,0,0"`},
			&cli.Float64Flag{Name: "d-spacing", Usage: "Lattice spacing"},
			&cli.Float64SliceFlag{Name: "distance", Usage: "Measured distance (repeatable or comma-separated)"},
			&cli.StringFlag{Name: "image", Usage: "Image reference relative to the asset root"},
			&cli.BoolFlag{Name: "merge", Usage: "Fold into an existing observation of the same plane"},
		},
		Action: func(c *cli.Context) error {
			key, err := structure.ParseHKLText(c.String("plane"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			input := ops.AddHKLInput{
				Filename: c.Args().First(),
				Plane:    key,
				Distance: c.Float64Slice("distance"),
				Image:    c.String("image"),
				Merge:    c.Bool("merge"),
			}
			if c.IsSet("d-spacing") {
				input.DSpacing = structure.NewDSpacing(c.Float64("d-spacing"))
			}

			output, err := ops.AddHKL(s.Store(), input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Classify every record as All Available, Partial or Bad",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Only show records with this label (all-available, partial, bad)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Status(s.Store(), s.Oracle(), ops.StatusInput{Status: c.String("status")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// buildCmd creates the build command.
func buildCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Render the HTML status report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Destination .html file (default from config)"},
			&cli.BoolFlag{Name: "no-history", Usage: "Do not record the run in the index"},
		},
		Action: func(c *cli.Context) error {
			database := s.Index()
			if c.Bool("no-history") {
				database = nil
			}
			output, err := ops.Build(c.Context, s.Store(), s.Oracle(), database, s.cfg, ops.BuildInput{
				OutputPath:  c.String("output"),
				DatasetPath: s.cfg.Dataset,
				Logger:      s.logger,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// indexCmd creates the index command.
func indexCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Rebuild the SQLite index from the dataset",
		Action: func(c *cli.Context) error {
			output, err := ops.Index(c.Context, s.Store(), s.Oracle(), s.Index(), ops.IndexInput{})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// inventoryCmd creates the inventory command.
func inventoryCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "Query the SQLite index",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by label"},
			&cli.StringFlag{Name: "prefix", Aliases: []string{"p"}, Usage: "Filename prefix filter"},
			&cli.StringFlag{Name: "plane", Usage: `Only records observing this plane, e.g. "1,0,0"`},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultInventoryLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			input := ops.InventoryInput{
				Status: c.String("status"),
				Prefix: c.String("prefix"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}
			if p := c.String("plane"); p != "" {
				key, err := structure.ParseHKLText(p)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.Plane = &key
			}

			output, err := ops.Inventory(s.Index(), input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded report builds, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(s.Index(), ops.HistoryInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// exportXLSXCmd creates the export-xlsx command.
func exportXLSXCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "export-xlsx",
		Usage: "Write the status table and the plane table to an Excel workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Destination .xlsx file"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ExportXLSX(s.Store(), s.Oracle(), ops.ExportXLSXInput{Path: c.String("output")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the live report and the plane images over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if addr := c.String("addr"); addr != "" {
				s.cfg.ServeAddr = addr
			}
			srv := web.NewServer(s.Store(), s.Index(), s.cfg, s.logger, Version)
			if err := web.Run(srv, s.logger); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	gErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", gErr.Code, gErr.Message), 1)
}
