package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/raidbot/core/config"
	coredatabase "github.com/m3rciful/raidbot/core/database"
	"github.com/m3rciful/raidbot/internal/domain"
	"github.com/m3rciful/raidbot/internal/generate"
	"github.com/m3rciful/raidbot/internal/validate"
)

// RaidConfig tunes raids and chat locks.
type RaidConfig struct {
	// InviteMarker must appear in a chat's exported invite link.
	InviteMarker string `yaml:"invite_marker" envconfig:"RAID_INVITE_MARKER"`
	// DefaultGoals is "comments,reposts,likes,bookmarks" for new targets.
	DefaultGoals string `yaml:"default_goals" envconfig:"RAID_DEFAULT_GOALS"`
	// UnlockRetrySeconds is the pause between failed unlock attempts.
	UnlockRetrySeconds int `yaml:"unlock_retry_seconds" envconfig:"RAID_UNLOCK_RETRY_SECONDS"`
	UnlockAttempts     int `yaml:"unlock_attempts" envconfig:"RAID_UNLOCK_ATTEMPTS"`

	Goals domain.Goals `yaml:"-" ignored:"true"`
}

// OpsConfig configures the ops HTTP endpoint.
type OpsConfig struct {
	// Listen is host:port; empty disables the endpoint.
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// Config is the raid bot configuration: the shared core sections plus the
// bot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	OpenAI   generate.Config     `yaml:"openai"`
	Raid     RaidConfig          `yaml:"raid"`
	Ops      OpsConfig           `yaml:"ops"`
}

// CoreConfig exposes the embedded core configuration to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// LoadConfig reads path, overlays the environment and normalizes the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	c.OpenAI.Normalize()

	c.Raid.InviteMarker = strings.TrimSpace(c.Raid.InviteMarker)
	if c.Raid.InviteMarker == "" {
		c.Raid.InviteMarker = validate.DefaultInviteMarker
	}
	if s := strings.TrimSpace(c.Raid.DefaultGoals); s != "" {
		goals, err := validate.Goals(s)
		if err != nil {
			return fmt.Errorf("raid.default_goals: %w", err)
		}
		c.Raid.Goals = goals
	}
	if c.Raid.UnlockRetrySeconds < 0 {
		return fmt.Errorf("raid.unlock_retry_seconds must be >= 0")
	}
	if c.Raid.UnlockAttempts < 0 {
		return fmt.Errorf("raid.unlock_attempts must be >= 0")
	}
	return nil
}
