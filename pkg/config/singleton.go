package config

import "sync/atomic"

// current is the process-wide configuration installed by Initialize or
// SetConfig. Readers never block a reload.
var current atomic.Pointer[Config]

// Initialize loads path with LENDRULES_ environment overrides and installs
// the result. A failed load leaves the previous configuration in place.
func Initialize(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	SetConfig(cfg)
	return nil
}

// GetConfig returns the installed configuration, or nil.
func GetConfig() *Config { return current.Load() }

// SetConfig installs cfg. Passing nil clears it.
func SetConfig(cfg *Config) { current.Store(cfg) }

// MustGetConfig is GetConfig for callers that cannot run unconfigured.
func MustGetConfig() *Config {
	cfg := current.Load()
	if cfg == nil {
		panic("config: Initialize has not been called")
	}
	return cfg
}
