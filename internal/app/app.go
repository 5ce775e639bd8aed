// Package app wires the raid bot: storage, generation, chat locks, the
// conversation orchestrator and the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/raidbot/core/bootstrap"
	"github.com/m3rciful/raidbot/core/logger"
	tg "github.com/m3rciful/raidbot/core/telegram"
	"github.com/m3rciful/raidbot/core/telegram/middleware"
	"github.com/m3rciful/raidbot/core/telegram/router"
	"github.com/m3rciful/raidbot/core/telegram/sender"
	"github.com/m3rciful/raidbot/internal/bot"
	"github.com/m3rciful/raidbot/internal/generate"
	"github.com/m3rciful/raidbot/internal/lock"
	"github.com/m3rciful/raidbot/internal/ops"
	"github.com/m3rciful/raidbot/internal/storage"
)

// App holds the wired components between bootstrap and shutdown.
type App struct {
	cfg *Config
	db  *sqlx.DB

	store        *storage.Store
	dispatcher   *sender.Dispatcher
	transport    *bot.Telegram
	scheduler    *lock.Scheduler
	orchestrator *bot.Orchestrator
	registry     *tg.Registry
	serializer   *middleware.Serializer
	ops          *ops.Server
}

// Bootstrap brings up logging and the database, then wires the bot.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Prepare:  storage.EnsureSchema,
	})
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return a, nil
}

// New wires the bot around an open database.
func New(cfg *Config, db *sqlx.DB) (*App, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("app: config and database are required")
	}
	a := &App{
		cfg:        cfg,
		db:         db,
		store:      storage.New(db),
		dispatcher: sender.NewDispatcher(sender.Options{MaxRetries: 2}),
		registry:   tg.NewRegistry(),
		serializer: middleware.NewSerializer(0),
	}
	a.transport = bot.NewTelegram(a.dispatcher)
	a.scheduler = lock.NewScheduler(a.transport, lock.Options{
		RetryDelay:        time.Duration(cfg.Raid.UnlockRetrySeconds) * time.Second,
		MaxUnlockAttempts: cfg.Raid.UnlockAttempts,
	})

	var gen bot.Generator
	if cfg.OpenAI.Enabled() {
		gen = generate.New(generate.NewOpenAI(cfg.OpenAI))
	} else {
		logger.Warn(logger.Background(), "app", "generation",
			slog.String("status", "degraded"),
			slog.String("reason", "openai.api_key not set"),
		)
	}
	a.orchestrator = bot.New(a.transport, a.store, a.store, gen, a.scheduler, bot.Options{
		InviteMarker: cfg.Raid.InviteMarker,
		DefaultGoals: cfg.Raid.Goals,
	})
	if err := bot.NewHandlers(a.orchestrator).Register(a.registry); err != nil {
		a.dispatcher.Close()
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}
	a.ops = ops.NewServer(a.store, a.scheduler)
	return a, nil
}

// TelegramRunOptions describes how the core runtime should serve the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := &a.cfg.Config
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes,
		router.CallbackRoute(a.registry, router.CallbackOptions{}),
		router.TextRoute(bot.NewHandlers(a.orchestrator), a.registry, router.TextOptions{}),
	)
	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Dispatcher:  a.dispatcher,
		Synchronous: true,
		Middlewares: tg.DefaultMiddlewares(core, a.serializer, nil),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt tg.Runtime) error {
	a.transport.SetBot(rt.Bot)
	if err := a.ops.Start(ctx, a.cfg.Ops.Listen); err != nil {
		return fmt.Errorf("app: ops endpoint: %w", err)
	}
	return nil
}

// stop runs before the runtime closes the dispatcher, so replies of updates
// still draining from the serializer can go out.
func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	a.serializer.Close()
	a.scheduler.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var errs []error
	if err := a.ops.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("ops shutdown: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}
	err := errors.Join(errs...)
	logger.Info(ctx, "app", "stop",
		slog.String("status", logger.Status(err)),
		slog.Int("pending_unlocks", len(a.scheduler.Pending())),
	)
	return err
}
