package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/raidbot/core/config"
	coredatabase "github.com/m3rciful/raidbot/core/database"
	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: yaml-token
  admin_id: 42
database:
  driver: sqlite3
  path: raid.db
openai:
  model: gpt-4o-mini
raid:
  default_goals: "1,2,3,4"
ops:
  listen: 127.0.0.1:9090
`)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.CoreConfig().Telegram.AdminID)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, coredatabase.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.True(t, cfg.OpenAI.Enabled())
	assert.Equal(t, domain.Goals{Comments: 1, Reposts: 2, Likes: 3, Bookmarks: 4}, cfg.Raid.Goals)
	assert.Equal(t, "t.me/", cfg.Raid.InviteMarker)
	assert.Equal(t, "127.0.0.1:9090", cfg.Ops.Listen)
}

func TestLoadConfigRejectsBadGoals(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: t
database:
  driver: sqlite
  path: raid.db
raid:
  default_goals: "1,2,3"
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raid.default_goals")
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: t
database:
  driver: mysql
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &Config{
		Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t", AdminID: 42}},
		Database: coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: ":memory:"},
	}
	require.NoError(t, cfg.Normalize())

	db, err := coredatabase.Connect(cfg.Database)
	require.NoError(t, err)
	require.NoError(t, storage.EnsureSchema(context.Background(), db))

	a, err := New(cfg, db)
	require.NoError(t, err)
	t.Cleanup(a.dispatcher.Close)
	return a
}

func TestNewRegistersCommands(t *testing.T) {
	a := newTestApp(t)

	cmds := a.registry.Commands()
	for _, name := range []string{"/sgx_setup", "/sgx_edit", "/sgx_delete", "/sgx_info", "/shillx", "/raid_goals", "/sgx_unlock", "/sgx_locks", "/cancel", "/start"} {
		assert.Contains(t, cmds, name)
	}
	assert.True(t, cmds["/sgx_locks"].AdminOnly)
	assert.True(t, cmds["/start"].Hidden)
	assert.ElementsMatch(t, []string{"sgx_cancel", "sgx_field"}, a.registry.ListCallbacks())
}

func TestTelegramRunOptions(t *testing.T) {
	a := newTestApp(t)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.True(t, opts.Synchronous)
	assert.Same(t, a.dispatcher, opts.Dispatcher)
	assert.Same(t, a.registry, opts.Registry)
	require.NotEmpty(t, opts.Middlewares)
	assert.Equal(t, "serial", opts.Middlewares[0].Name)
	// every command plus the callback and text routes
	assert.Len(t, opts.Routes, len(a.registry.Commands())+2)
	assert.NotNil(t, opts.OnStart)
	assert.NotNil(t, opts.OnStop)
}

func TestNewRejectsMissingDatabase(t *testing.T) {
	_, err := New(&Config{}, nil)
	assert.Error(t, err)
}
