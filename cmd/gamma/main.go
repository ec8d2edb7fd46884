package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gammasurf/gamma/internal/config"
	"github.com/gammasurf/gamma/internal/logging"
	"github.com/gammasurf/gamma/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"normalize": true, "fix-images": true, "make-image-dirs": true, "strip-ext": true,
	"list": true, "get": true, "add": true, "set": true, "delete": true,
	"smiles": true, "add-hkl": true, "status": true,
	"build": true, "index": true, "inventory": true, "history": true,
	"export-xlsx": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags come before the subcommand: gamma --dataset x.json status
	if len(arg) > 1 && arg[0] == '-' {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  gamma - crystal structure dataset tool

  Usage: gamma <command> [options]
         gamma --help

  MCP server mode requires piped input.`)
}

// loadConfig merges ~/.gamma/config.json, the nearest .gamma/config.json,
// a .env file in the working directory and GAMMA_* variables, in that order.
func loadConfig(baseDir string) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return nil, err
	}
	env, err := config.DotenvEnv(filepath.Join(cwd, ".env"))
	if err != nil {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	return config.ApplyEnv(cfg, env), nil
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no configuration
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(newSession(config.DefaultConfig(), "", logging.Discard()))
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".gamma")

	cfg, err := loadConfig(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.FromConfig(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	sess := newSession(cfg, baseDir, logger)
	defer sess.Close()

	if isCLIMode(os.Args) {
		app := newCLIApp(sess)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			sess.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'gamma --help' for usage.\n")
		sess.Close()
		os.Exit(1)
	}

	if err := mcp.Run(sess.Store(), sess.Index(), cfg, logger, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		sess.Close()
		os.Exit(1)
	}
}
