package media

import (
	"time"

	"github.com/courseframe/courseframe-backend/internal/media"
)

// StageConfig is the explicit per-stage configuration value object. Clients
// never read the environment themselves; the app layer resolves env vars
// once and hands the result in here.
type StageConfig struct {
	BaseURL string
	APIKey  string

	PollInterval    time.Duration
	MaxPollAttempts int

	HTTPTimeout time.Duration
}

func (c StageConfig) withDefaults() StageConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = 60
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	return c
}

// Config bundles the four stage configurations plus the output spec the
// validators enforce.
type Config struct {
	Speech     StageConfig
	LipSync    StageConfig
	Render     StageConfig
	Transcript StageConfig

	Spec media.Spec
}

// DefaultConfig returns a config with the documented polling defaults:
// 5s interval everywhere, 60 attempts for the fast stages and 120 for the
// slow video-producing ones.
func DefaultConfig() Config {
	return Config{
		Speech:     StageConfig{PollInterval: 5 * time.Second, MaxPollAttempts: 60},
		LipSync:    StageConfig{PollInterval: 5 * time.Second, MaxPollAttempts: 120},
		Render:     StageConfig{PollInterval: 5 * time.Second, MaxPollAttempts: 120},
		Transcript: StageConfig{PollInterval: 5 * time.Second, MaxPollAttempts: 60},
		Spec:       media.DefaultSpec(),
	}
}
