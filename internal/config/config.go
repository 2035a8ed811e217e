package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level focusd configuration.
type Config struct {
	// User identifies the local user to the server.
	User   string `mapstructure:"user"`
	Server Server `mapstructure:"server"`
	DB     DB     `mapstructure:"db"`
	Timer  Timer  `mapstructure:"timer"`
	Goal   Goal   `mapstructure:"goal"`
	Points Points `mapstructure:"points"`
	Log    Log    `mapstructure:"log"`

	// File is the config file that was read, empty when none existed.
	File string `mapstructure:"-"`
}

type Server struct {
	Addr     string `mapstructure:"addr"`
	URL      string `mapstructure:"url"`
	DevUser  string `mapstructure:"dev_user"`
	Timezone string `mapstructure:"timezone"`
}

type DB struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type Timer struct {
	FocusMinutes int    `mapstructure:"focus_minutes"`
	BreakMinutes int    `mapstructure:"break_minutes"`
	StateFile    string `mapstructure:"state_file"`
}

type Goal struct {
	DailyMinutes int `mapstructure:"daily_minutes"`
}

type Points struct {
	// DailyFocusCap allows one focus award per user per day.
	DailyFocusCap bool `mapstructure:"daily_focus_cap"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("user", defaultUser())
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.url", DefaultServerURL)
	v.SetDefault("server.dev_user", "")
	v.SetDefault("server.timezone", "Local")
	v.SetDefault("db.driver", DefaultDriver)
	v.SetDefault("db.dsn", "")
	v.SetDefault("timer.focus_minutes", DefaultTimer.FocusMinutes)
	v.SetDefault("timer.break_minutes", DefaultTimer.BreakMinutes)
	v.SetDefault("timer.state_file", filepath.Join(DefaultConfigDir, DefaultStateFile))
	v.SetDefault("goal.daily_minutes", DefaultGoalMinutes)
	v.SetDefault("points.daily_focus_cap", false)
	v.SetDefault("log.level", DefaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. A .env file in the working
// directory is loaded into the environment first; FOCUSD_* variables override
// the file.
func Load(cfgFile string) (*Config, error) {
	// Missing .env is normal.
	_ = godotenv.Load()

	v := newViper()
	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Timer.StateFile = expandPath(cfg.Timer.StateFile)
	if cfg.DB.DSN == "" && cfg.DB.Driver == DefaultDriver {
		cfg.DB.DSN = DBPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("db.driver must be sqlite or postgres, got %q", c.DB.Driver)
	}
	if c.DB.Driver == "postgres" && c.DB.DSN == "" {
		return errors.New("db.dsn is required for postgres")
	}
	if c.Timer.FocusMinutes <= 0 || c.Timer.BreakMinutes <= 0 {
		return errors.New("timer durations must be positive")
	}
	if c.Goal.DailyMinutes <= 0 {
		return errors.New("goal.daily_minutes must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Location is the server time zone that defines calendar days.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || c.Server.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("server.timezone: %w", err)
	}
	return loc, nil
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// SaveTimer writes new interval durations to the config file, creating it
// if needed. Other keys in the file are preserved.
func SaveTimer(cfgFile string, focusMinutes, breakMinutes int) error {
	path := cfgFile
	if path == "" {
		path = filepath.Join(ConfigDir(), DefaultConfigFile)
	}
	path = expandPath(path)

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	v.Set("timer.focus_minutes", focusMinutes)
	v.Set("timer.break_minutes", breakMinutes)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DBPath returns the full path to the SQLite database.
func DBPath() string {
	return filepath.Join(expandPath(DefaultConfigDir), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
