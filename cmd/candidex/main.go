// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/poiesic/candidex"
	"github.com/poiesic/candidex/config"
	"github.com/poiesic/candidex/metrics"
	"github.com/poiesic/candidex/reindex"
	"github.com/poiesic/candidex/server"
	"github.com/poiesic/candidex/tracing"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "candidex",
		Usage: "Hybrid semantic and fuzzy search over candidate resumes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"CANDIDEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides storage.path)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file before reading the configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file with rotation instead of stderr",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest candidates from JSON records or resume documents",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Parse and extract without writing to the stores",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid search",
				ArgsUsage: "[TEXT...]",
				Action:    searchCommand,
				Flags:     searchFlags(),
			},
			{
				Name:      "get",
				Usage:     "Show one candidate",
				ArgsUsage: "ID",
				Action:    getCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a candidate from both stores",
				ArgsUsage: "ID",
				Action:    deleteCommand,
			},
			{
				Name:   "list",
				Usage:  "List stored candidates",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset", Usage: "Number of candidates to skip"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of candidates to show", Value: 20},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Repair the vector index against the candidate store",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-embed every candidate, even when its index entry is current",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of candidates to read per batch",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed index writes",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides http.addr)",
					},
				},
			},
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "skill", Usage: "Required skill (repeatable)"},
		&cli.BoolFlag{Name: "match-all", Usage: "Require every --skill instead of any"},
		&cli.StringSliceFlag{Name: "company", Usage: "Company to fuzzy match (repeatable)"},
		&cli.StringSliceFlag{Name: "role", Usage: "Role to fuzzy match (repeatable)"},
		&cli.StringSliceFlag{Name: "institution", Usage: "Institution to fuzzy match (repeatable)"},
		&cli.StringSliceFlag{Name: "degree", Usage: "Degree to fuzzy match (repeatable)"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of results", Value: 10},
		&cli.IntFlag{Name: "offset", Usage: "Number of results to skip"},
		&cli.Float64Flag{Name: "semantic-weight", Usage: "Weight of the semantic score", Value: 0.6},
		&cli.Float64Flag{Name: "fuzzy-weight", Usage: "Weight of the fuzzy score", Value: 0.3},
		&cli.Float64Flag{Name: "exact-weight", Usage: "Weight of the skill overlap", Value: 0.1},
		&cli.DurationFlag{Name: "timeout", Usage: "Semantic search timeout (0 uses the configured default)"},
		&cli.BoolFlag{Name: "json", Usage: "Print results as JSON"},
	}
}

// setup loads .env, configures logging and resolves the configuration.
func setup(c *cli.Context) error {
	if envFile := c.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	var out io.Writer = os.Stderr
	if path := c.String("log-file"); path != "" {
		out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // Megabytes
			MaxBackups: 5,
			MaxAge:     30, // Days
			Compress:   true,
		}
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads --config when given and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
	} else {
		cfg = config.Default()
	}

	if db := c.String("db"); db != "" {
		cfg.Storage.Driver = config.DriverBadger
		cfg.Storage.Path = db
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = strings.ToLower(c.String("log-level"))
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*candidex.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	db, err := candidex.Open(c.Context, cfg, candidex.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func reindexCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := db.Config()
	if c.IsSet("batch-size") {
		cfg.Reindex.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		cfg.Reindex.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.Reindex.RetryDelay = c.Duration("retry-delay")
	}
	if cfg.Reindex.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.Reindex.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	r, err := reindex.NewReindexer(db.CandidateRepository(), db.VectorIndex(), &reindex.Config{
		BatchSize:      cfg.Reindex.BatchSize,
		Workers:        cfg.Reindex.Workers,
		ReportInterval: cfg.Reindex.ReportInterval,
		MaxRetries:     cfg.Reindex.MaxRetries,
		RetryDelay:     cfg.Reindex.RetryDelay,
		Force:          c.Bool("force"),
	}, os.Stderr)
	if err != nil {
		return err
	}

	report, err := r.Run(c.Context)
	if report != nil {
		printReindexReport(c.App.Writer, report)
	}
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()
	cfg := db.Config()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "err", err)
		}
	}()

	metrics.Register()

	svc, in, err := db.NewService()
	if err != nil {
		return err
	}
	defer in.Release()

	addr := cfg.HTTP.Addr
	if a := c.String("addr"); a != "" {
		addr = a
	}

	srv := server.New(svc, server.WithHealthCheck(db.Ping), server.WithLogger(slog.Default()))
	return srv.ListenAndServe(ctx, server.ListenConfig{
		Addr:            addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
}
