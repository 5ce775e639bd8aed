// Package bootstrap brings up shared infrastructure: logger, database and schema.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/raidbot/core/config"
	coredatabase "github.com/m3rciful/raidbot/core/database"
	"github.com/m3rciful/raidbot/core/logger"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
	// Prepare runs after migrations, for schema work migrations cannot do
	// (the embedded sqlite schema).
	Prepare func(ctx context.Context, db *sqlx.DB) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, connects to the database, applies migrations
// and runs Prepare.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	start := time.Now()

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	if opts.Prepare != nil {
		if err := opts.Prepare(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: prepare failed: %w", err)
		}
	}

	logger.Info(ctx, "app", "bootstrap",
		slog.String("status", "ok"),
		slog.String("driver", opts.Database.Driver),
		slog.Duration("duration", logger.Took(start)),
	)
	return &Result{DB: db}, nil
}
