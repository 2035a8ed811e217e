// Package config provides configuration loading and defaults for focusd.
package config

// DefaultConfigDir is the default location for focusd configuration.
const DefaultConfigDir = "~/.config/focusd"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "focusd.db"

// DefaultStateFile is the filename of the timer snapshot.
const DefaultStateFile = "timer.json"

const (
	DefaultAddr      = ":8080"
	DefaultServerURL = "http://localhost:8080"
	DefaultDriver    = "sqlite"
	DefaultLogLevel  = "info"
)

// DefaultTimer is a classic pomodoro.
var DefaultTimer = Timer{
	FocusMinutes: 25,
	BreakMinutes: 5,
}

// DefaultGoalMinutes is the daily focus goal.
const DefaultGoalMinutes = 120

// EnvPrefix namespaces environment overrides, e.g. FOCUSD_DB_DSN.
const EnvPrefix = "FOCUSD"
