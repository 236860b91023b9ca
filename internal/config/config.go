package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"prizedraw/internal/sequencer"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Janitor      JanitorConfig
	Presentation PresentationConfig
	Log          LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port          string
	SessionSecret string
	Title         string
}

// JanitorConfig controls the cleanup of idle tenant sessions
type JanitorConfig struct {
	Schedule  string
	IdleAfter time.Duration
}

// PresentationConfig selects how winners are revealed
type PresentationConfig struct {
	Mode   string
	Timing sequencer.Timing
}

// LogConfig holds logger settings
type LogConfig struct {
	Verbose bool
	File    string
}

const (
	ModeTimed  = "timed"
	ModeManual = "manual"
)

// Load reads .env (if any), then config.yaml from the given paths, then
// PRIZEDRAW_* environment variables.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("PRIZEDRAW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use defaults and environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	t := sequencer.DefaultTiming()
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.sessionsecret", "")
	v.SetDefault("server.title", "抽獎系統")
	v.SetDefault("janitor.schedule", "@every 10m")
	v.SetDefault("janitor.idleafter", time.Hour)
	v.SetDefault("presentation.mode", ModeTimed)
	v.SetDefault("presentation.timing.countdownticks", t.CountdownTicks)
	v.SetDefault("presentation.timing.tick", t.Tick)
	v.SetDefault("presentation.timing.activation", t.Activation)
	v.SetDefault("presentation.timing.shuffleperhead", t.ShufflePerHead)
	v.SetDefault("presentation.timing.shufflemin", t.ShuffleMin)
	v.SetDefault("presentation.timing.shufflemax", t.ShuffleMax)
	v.SetDefault("presentation.timing.revealfirst", t.RevealFirst)
	v.SetDefault("presentation.timing.revealstep", t.RevealStep)
	v.SetDefault("presentation.timing.revealhold", t.RevealHold)
	v.SetDefault("presentation.timing.celebration", t.Celebration)
	v.SetDefault("presentation.timing.cuebackup", t.CueBackup)
	v.SetDefault("log.verbose", false)
	v.SetDefault("log.file", "")
}

func (c *Config) validate() error {
	switch c.Presentation.Mode {
	case ModeTimed, ModeManual:
	default:
		return fmt.Errorf("presentation.mode must be %q or %q, got %q", ModeTimed, ModeManual, c.Presentation.Mode)
	}
	if c.Presentation.Timing.CueBackup <= 0 {
		return errors.New("presentation.timing.cuebackup must be positive")
	}
	if c.Janitor.IdleAfter <= 0 {
		return errors.New("janitor.idleafter must be positive")
	}
	return nil
}
