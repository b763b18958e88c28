// CLAUDE:SUMMARY docnorm entry point: `run` executes one ingestion pass, `serve` exposes the tools over MCP stdio.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/docnorm/dbopen"
	"github.com/hazyhaar/docnorm/ingest"
	"github.com/hazyhaar/docnorm/kit"
	"github.com/hazyhaar/docnorm/runlog"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:], logger)
	case "serve":
		err = serveCmd(os.Args[2:], logger)
	case "history":
		err = historyCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("docnorm failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  docnorm run [-config docnorm.yaml] <source_root> <dest_root>
  docnorm serve [-config docnorm.yaml]
  docnorm history [-config docnorm.yaml] [-limit 20]`)
}

// loadConfig reads the config file, tolerating a missing file for the default
// path so `docnorm run src out` works without any setup.
func loadConfig(path string, explicit bool) (*ingest.Config, error) {
	cfg, err := ingest.LoadConfig(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg = &ingest.Config{}
			cfg.Defaults()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// buildCoordinator wires the coordinator with run history when a DB path is
// configured.
func buildCoordinator(cfg *ingest.Config, logger *slog.Logger) (*ingest.Coordinator, func(), error) {
	opts := []ingest.Option{ingest.WithLogger(logger)}
	cleanup := func() {}

	if cfg.DBPath != "" {
		db, err := dbopen.Open(cfg.DBPath,
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(runlog.Schema),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open run history db: %w", err)
		}
		audit := runlog.NewAuditWriter(db, 1000)
		metrics := runlog.NewMetrics(db, 100, 5*time.Second)
		opts = append(opts,
			ingest.WithRunStore(runlog.NewStore(db)),
			ingest.WithAudit(audit),
			ingest.WithMetrics(metrics),
		)
		cleanup = func() {
			_ = metrics.Close()
			_ = audit.Close()
			_ = db.Close()
		}
	}
	return ingest.New(cfg, opts...), cleanup, nil
}

func runCmd(args []string, logger *slog.Logger) error {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := flags.String("config", "docnorm.yaml", "config file")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		usage()
		return fmt.Errorf("run needs <source_root> and <dest_root>")
	}

	cfg, err := loadConfig(*cfgPath, configFlagSet(flags))
	if err != nil {
		return err
	}
	c, cleanup, err := buildCoordinator(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := kit.WithTransport(context.Background(), "cli")
	res, err := c.Run(ctx, flags.Arg(0), flags.Arg(1))
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(res)
}

func serveCmd(args []string, logger *slog.Logger) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := flags.String("config", "docnorm.yaml", "config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath, configFlagSet(flags))
	if err != nil {
		return err
	}
	c, cleanup, err := buildCoordinator(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "docnorm",
		Version: version,
	}, nil)
	c.RegisterMCP(srv)

	slog.Info("docnorm MCP server on stdio", "version", version)
	return srv.Run(context.Background(), &mcp.StdioTransport{})
}

func historyCmd(args []string) error {
	flags := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := flags.String("config", "docnorm.yaml", "config file")
	limit := flags.Int("limit", 20, "max runs to show")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath, configFlagSet(flags))
	if err != nil {
		return err
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("run history disabled: no db_path in config")
	}
	db, err := dbopen.Open(cfg.DBPath, dbopen.WithSchema(runlog.Schema))
	if err != nil {
		return fmt.Errorf("open run history db: %w", err)
	}
	defer db.Close()

	runs, err := runlog.NewStore(db).Recent(context.Background(), *limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

// configFlagSet reports whether -config was passed explicitly.
func configFlagSet(flags *flag.FlagSet) bool {
	set := false
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			set = true
		}
	})
	return set
}
