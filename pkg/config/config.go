// Package config loads the core's configuration object (spec.md §6.5).
// It keeps the teacher's section-struct shape
// (internal/config/config.go's PaysysConfig/DatabaseConfig split) but
// replaces its hand-rolled readFile/parseINI/setConfigValue chain with
// gopkg.in/ini.v1's reflection-based MapTo, the way teleport's config
// loaders lean on a real parsing library instead of a manual line walk.
package config

import (
	"time"

	"gopkg.in/ini.v1"

	"reborn-client/internal/reconnect"
)

// Connection holds the TCP endpoint and per-generation login fields
// (spec.md §6.5).
type Connection struct {
	Host                  string `ini:"host"`
	Port                  int    `ini:"port"`
	ProtocolGeneration    string `ini:"protocol_generation"` // gen1, gen2, gen4, gen5
	BuildString           string `ini:"build_string"`
	ProtocolVersionString string `ini:"protocol_version_string"`
	ClientType            int    `ini:"client_type"`
	ConnectTimeoutSeconds int    `ini:"connect_timeout"`
}

// ReconnectPolicy mirrors internal/reconnect.Policy field for field so
// it can be loaded straight from an INI section.
type ReconnectPolicy struct {
	Enabled        bool    `ini:"enabled"`
	MaxAttempts    int     `ini:"max_attempts"`
	Strategy       string  `ini:"strategy"` // immediate, fixed, linear, exponential
	InitialDelay   float64 `ini:"initial_delay"`
	MaxDelay       float64 `ini:"max_delay"`
	Multiplier     float64 `ini:"multiplier"`
	ResetOnSuccess bool    `ini:"reset_on_success"`
}

// Cache holds the optional cache pass-through settings (spec.md §6.5:
// "cache_directory ... if absent, cache pass-through is disabled").
type Cache struct {
	Directory string `ini:"cache_directory"`
	MySQLDSN  string `ini:"mysql_dsn"`
}

// Config is the core's single recognized configuration object.
type Config struct {
	Connection   Connection
	Reconnect    ReconnectPolicy
	Cache        Cache
	DebugPackets bool
}

// Load reads filename as INI and maps it onto a Config (spec.md §6.5).
func Load(filename string) (*Config, error) {
	f, err := ini.Load(filename)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := f.Section("connection").MapTo(&cfg.Connection); err != nil {
		return nil, err
	}
	if err := f.Section("reconnect").MapTo(&cfg.Reconnect); err != nil {
		return nil, err
	}
	if err := f.Section("cache").MapTo(&cfg.Cache); err != nil {
		return nil, err
	}
	cfg.DebugPackets = f.Section("").Key("debug_packets").MustBool(false)

	return cfg, nil
}

// ConnectTimeout returns ConnectTimeoutSeconds as a time.Duration,
// falling back to the transport package's own default when unset.
func (c Connection) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// ToReconnectPolicy translates the INI-friendly ReconnectPolicy into
// internal/reconnect.Policy, parsing the strategy name into its enum.
func (p ReconnectPolicy) ToReconnectPolicy() reconnect.Policy {
	rp := reconnect.DefaultPolicy()
	rp.Enabled = p.Enabled
	if p.MaxAttempts > 0 {
		rp.MaxAttempts = p.MaxAttempts
	}
	if p.InitialDelay > 0 {
		rp.InitialDelay = time.Duration(p.InitialDelay * float64(time.Second))
	}
	if p.MaxDelay > 0 {
		rp.MaxDelay = time.Duration(p.MaxDelay * float64(time.Second))
	}
	if p.Multiplier > 0 {
		rp.Multiplier = p.Multiplier
	}
	rp.ResetOnSuccess = p.ResetOnSuccess

	switch p.Strategy {
	case "immediate":
		rp.Strategy = reconnect.Immediate
	case "fixed":
		rp.Strategy = reconnect.Fixed
	case "linear":
		rp.Strategy = reconnect.Linear
	case "exponential", "":
		rp.Strategy = reconnect.Exponential
	}
	return rp
}
