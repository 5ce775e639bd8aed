// Package cmd is the process entry point shared by bot binaries: config,
// bootstrap, signal handling and the Telegram runtime.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/raidbot/core/config"
	"github.com/m3rciful/raidbot/core/logger"
	coretelegram "github.com/m3rciful/raidbot/core/telegram"
)

// ConfigCarrier is a bot configuration embedding the core one.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is a bootstrapped bot ready to describe its runtime.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	// ConfigEnvVar names the variable holding the config path; CONFIG_PATH by default.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error

	// Getenv and SignalContext default to os.Getenv and an interrupt/SIGTERM
	// aware context.
	Getenv        func(string) string
	SignalContext func() (context.Context, context.CancelFunc)
}

func (o *Options) defaults() error {
	if o.LoadConfig == nil {
		return errors.New("cmd: LoadConfig is required")
	}
	if o.Bootstrap == nil {
		return errors.New("cmd: Bootstrap is required")
	}
	if o.ConfigEnvVar == "" {
		o.ConfigEnvVar = "CONFIG_PATH"
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.SignalContext == nil {
		o.SignalContext = func() (context.Context, context.CancelFunc) {
			return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		}
	}
	if o.ShutdownLogger == nil {
		o.ShutdownLogger = logger.Shutdown
	}
	if o.RunTelegram == nil {
		o.RunTelegram = coretelegram.RunTelegram
	}
	return nil
}

func (o *Options) configPath() (string, error) {
	if p := o.Getenv(o.ConfigEnvVar); p != "" {
		return p, nil
	}
	if o.DefaultConfigPath != "" {
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", o.ConfigEnvVar)
}

// Run loads configuration, bootstraps the app and serves it until a signal
// arrives.
func Run(opts Options) error {
	if err := opts.defaults(); err != nil {
		return err
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	ctx, cancel := opts.SignalContext()
	defer cancel()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer func() {
		if err := opts.ShutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	announceLifecycle(&runOpts, startedAt)
	return opts.RunTelegram(ctx, runOpts)
}

// announceLifecycle logs readiness after the app's own OnStart succeeded and
// shutdown before its OnStop runs.
func announceLifecycle(ro *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := ro.OnStart, ro.OnStop
	ro.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("status", "ok"),
			slog.Duration("duration", logger.Took(startedAt)),
		)
		return nil
	}
	ro.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown", slog.String("status", "ok"))
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}
