package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"chat-presence/globals"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultPort           = 3000
	defaultHistorySize    = 50
	defaultTypingExpiryMs = 2000
)

// Config is the global configuration object which is filled via the
// configuration file, environment (CHAT_ prefix) and command-line flags.
type Config struct {
	Port              int               `mapstructure:"port"`
	Rooms             []string          `mapstructure:"rooms"`
	HistoryConfig     HistoryConfig     `mapstructure:"history"`
	PresenceConfig    PresenceConfig    `mapstructure:"presence"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	RetentionConfig   RetentionConfig   `mapstructure:"retention"`
	LogLevel          string            `mapstructure:"log_level"`
}

// HistoryConfig configures the recent-history window that is replayed to a
// participant on login.
type HistoryConfig struct {
	HistorySize int `mapstructure:"history_size"`
}

// PresenceConfig configures the typing-expiry debounce interval.
type PresenceConfig struct {
	TypingExpiryMs int `mapstructure:"typing_expiry_ms"`
}

// PersistenceConfig configures the persistence backend. Type is one of
// "gorm-sqlite", "gorm-postgres" or "buntdb"; an empty type falls back to an
// in-memory BuntDB store.
type PersistenceConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// RetentionConfig configures the optional message retention sweep. A
// MaxAgeDays of 0 disables pruning.
type RetentionConfig struct {
	CronSpec   string `mapstructure:"cron_spec"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.IntP("port", "p", defaultPort, "listen port")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := "-"
	to := "_"
	name = strings.Replace(name, from, to, -1)
	return pflag.NormalizedName(name)
}

// ReadConfiguration reads and parses the configuration located at configPath,
// which can either point to a single TOML file or to a directory, in which
// case all *.toml files in this directory are concatenated. It returns a
// Config object.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	viper.SetDefault("port", defaultPort)
	viper.SetDefault("history.history_size", defaultHistorySize)
	viper.SetDefault("presence.typing_expiry_ms", defaultTypingExpiryMs)
	viper.SetDefault("log_level", "INFO")
	err := viper.BindPFlags(flagSet)
	if err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("CHAT")
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := os.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		err = viper.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			globals.AppLogger.Error("could not read config:", "error", err)
		}
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		globals.AppLogger.Error("could not unmarshal config:", "error", err)
	}
	if len(cfg.Rooms) == 0 {
		cfg.Rooms = globals.DefaultRooms
	}

	globals.AppLogger.Info("config", "cfg", cfg)
	return &cfg, nil
}

// HistorySize returns the configured recent-history window.
func (c *Config) HistorySize() int {
	if c.HistoryConfig.HistorySize > 0 {
		return c.HistoryConfig.HistorySize
	}
	return defaultHistorySize
}

// TypingExpiryMs returns the configured typing-expiry interval in ms.
func (c *Config) TypingExpiryMs() int {
	if c.PresenceConfig.TypingExpiryMs > 0 {
		return c.PresenceConfig.TypingExpiryMs
	}
	return defaultTypingExpiryMs
}
