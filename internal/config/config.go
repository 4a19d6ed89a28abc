// Package config reads beam-profile-mcp settings from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
	"github.com/ironsheep/beam-profile-mcp/internal/log"
)

// Environment variables.
const (
	EnvLogLevel          = "BEAM_MCP_LOG_LEVEL"
	EnvLogFormat         = "BEAM_MCP_LOG_FORMAT"
	EnvDefaultMethod     = "BEAM_MCP_DEFAULT_METHOD"
	EnvDefaultDecimation = "BEAM_MCP_DEFAULT_DECIMATION"
	EnvISOMaxIterations  = "BEAM_MCP_ISO_MAX_ITER"
)

// Defaults used when a variable is unset or invalid.
const (
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultMethod           = beam.MethodGauss
	DefaultDecimation       = 1
	DefaultISOMaxIterations = 50
)

// Config holds server-wide defaults. Tool arguments override them per call.
type Config struct {
	LogLevel         string
	LogFormat        string
	Method           beam.Method
	Decimation       int
	ISOMaxIterations int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		Method:           DefaultMethod,
		Decimation:       DefaultDecimation,
		ISOMaxIterations: DefaultISOMaxIterations,
	}
}

// Load reads the environment on top of Default. Invalid values are
// logged and ignored.
func Load() Config {
	cfg := Default()

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		if v == "text" || v == "json" {
			cfg.LogFormat = v
		} else {
			log.Warn("ignoring invalid log format", "var", EnvLogFormat, "value", v)
		}
	}
	if v := os.Getenv(EnvDefaultMethod); v != "" {
		m, err := beam.ParseMethod(v)
		if err != nil {
			log.Warn("ignoring invalid default method", "var", EnvDefaultMethod, "value", v)
		} else {
			cfg.Method = m
		}
	}
	cfg.Decimation = positiveInt(EnvDefaultDecimation, cfg.Decimation)
	cfg.ISOMaxIterations = positiveInt(EnvISOMaxIterations, cfg.ISOMaxIterations)
	return cfg
}

func positiveInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn("ignoring invalid positive integer", "var", name, "value", v)
		return fallback
	}
	return n
}

// FitOptions returns the beam options implied by the configuration.
// A non-zero decimation overrides the configured default.
func (c Config) FitOptions(decimation int) []beam.Option {
	if decimation == 0 {
		decimation = c.Decimation
	}
	return []beam.Option{
		beam.WithDecimation(decimation),
		beam.WithMaxISOIterations(c.ISOMaxIterations),
		beam.WithLogger(log.L()),
	}
}
