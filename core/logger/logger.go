// Package logger is the structured, context-first logging layer of the bot.
// Every line carries component, event and status, plus the correlation ids
// found on the context (rid, update, chat, user, handler, flow step).
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/raidbot/core/buildinfo"
	coreconfig "github.com/m3rciful/raidbot/core/config"
)

var (
	initOnce sync.Once

	shutdownMu sync.Mutex
	shutDown   bool

	writers []*asyncWriter
	closers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the root logger. It stays nil until InitLogger runs; the package
	// level helpers are no-ops in that state.
	L *slog.Logger
)

// InitLogger installs the process-wide logger. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		err = install(cfg)
	})
	return err
}

func install(cfg *coreconfig.Config) error {
	var lc coreconfig.LoggingConfig
	if cfg != nil {
		lc = cfg.Logging
	}
	levelVar.Set(parseLevel(lc.Level))
	debugSampler.Set(parseDebugSample(lc.DebugSample))
	traceOverride = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

	sinks := []io.Writer{os.Stdout}
	if f, err := openSink(lc.Dir, lc.BotFile); err != nil {
		return err
	} else if f != nil {
		sinks = append(sinks, f)
	}
	mainWriter := newAsyncWriter(sinks, 0)
	writers = append(writers, mainWriter)

	var errWriter *asyncWriter
	if f, err := openSink(lc.Dir, lc.ErrorsFile); err != nil {
		return err
	} else if f != nil {
		errWriter = newAsyncWriter([]io.Writer{f}, 0)
		writers = append(writers, errWriter)
	}

	L = slog.New(newStructuredHandler(handlerConfig{
		level:     &levelVar,
		writer:    mainWriter,
		errWriter: errWriter,
		format:    parseFormat(lc),
		keyOrder:  parseKeyOrder(lc.KeysOrder),
		stacks:    parseStacks(lc.Stacks),
	}))
	slog.SetDefault(L)

	Info(context.Background(), "app", "startup",
		slog.String("status", "ok"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", profile(lc)),
	)
	return nil
}

// openSink opens dir/name for appending. An empty dir or name means no sink.
func openSink(dir, name string) (*os.File, error) {
	dir, name = strings.TrimSpace(dir), strings.TrimSpace(name)
	if dir == "" || name == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	closers = append(closers, f)
	return f, nil
}

// Shutdown flushes pending lines and closes file sinks. Later calls do nothing.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutDown {
		return nil
	}
	shutDown = true

	var errs []error
	for _, w := range writers {
		errs = append(errs, w.Close())
	}
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func parseFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch profile(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	var order []string
	if raw != "" && raw != "default" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				order = append(order, p)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseStacks reads logging.stacks; "error", "on" and the usual truthy words enable stacks.
func parseStacks(raw string) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return raw == "error" || raw == "errors" || truthy(raw)
}

func parseDebugSample(spec string) (int, int) {
	if strings.TrimSpace(spec) == "" {
		return 1, 50
	}
	num, den := parseRatioSpec(spec)
	if num <= 0 || den <= 0 {
		return 0, 0
	}
	return num, den
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.TrimSpace(lc.Profile); p != "" {
		return strings.ToLower(p)
	}
	return "prod"
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Background is context.Background, kept for call sites outside any update.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes one event through logg, falling back to the context logger and then L.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ensure(ctx), level, "", attrs...)
}

// Component returns L scoped to name, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs at level under component.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		logg = logg.With("component", component)
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be written.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}

// TraceEnabled reports whether TRACE forces every debug line through.
func TraceEnabled() bool {
	return traceOverride
}
