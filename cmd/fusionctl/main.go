// Package main provides the fusionctl binary: a single-host deployment
// manager that renders a Docker Compose definition for the facefusion
// service and drives its lifecycle through the docker CLI.
//
// Usage:
//
//	fusionctl <command>
//
// Run "fusionctl help" for the command list.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fusionkit/fusionctl/internal/core/deploy"
	"github.com/fusionkit/fusionctl/internal/shell/engine"
	"github.com/fusionkit/fusionctl/internal/shell/lifecycle"
	"github.com/fusionkit/fusionctl/internal/shell/state"
	"github.com/fusionkit/fusionctl/internal/shell/store"
	"github.com/fusionkit/fusionctl/internal/shell/term"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fusionctl %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)
	ui := term.NewPrinter()

	verb, ok := lifecycle.ParseArgs(flag.Args())
	if !ok {
		if flag.NArg() > 1 {
			ui.Error("expected a single command, got %d", flag.NArg())
		} else {
			ui.Error("unknown command %q", flag.Arg(0))
		}
		fmt.Print(lifecycle.Usage)
		return ExitFailure
	}

	if verb == lifecycle.VerbVersion {
		fmt.Printf("fusionctl %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	dirs := state.DefaultDirs(cfg.DataDir)

	deployCfg, err := deploy.NewConfig(cfg.DeployOptions(dirs.Models))
	if err != nil {
		ui.Error("invalid configuration: %v", err)
		return ExitConfigError
	}

	eng := engine.NewComposeCLI(dirs.ComposeFile(), cfg.ProjectName, logger)

	// The history store is a convenience; a failure to open it degrades to
	// running without history, never to a failed verb.
	var history lifecycle.History
	if cfg.History.Enabled && verb != lifecycle.VerbHelp && verb != lifecycle.VerbConfig {
		dbPath := filepath.Join(dirs.State, "fusionctl.db")
		if s, err := store.NewSQLiteStore(dbPath); err != nil {
			logger.Warn("history store unavailable", "path", dbPath, "error", err)
		} else {
			history = s
			defer s.Close()
		}
	}

	dispatcher := lifecycle.NewDispatcher(lifecycle.Params{
		Config:         deployCfg,
		Dirs:           dirs,
		Engine:         eng,
		Printer:        ui,
		Logger:         logger,
		History:        history,
		RequiredGroup:  cfg.RequiredGroup,
		ServiceAccount: cfg.ServiceAccount,
	})

	return dispatcher.Dispatch(context.Background(), verb)
}
