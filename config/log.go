package config

import "os"

type LogConfig struct {
	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string

	// LogHandler selects the slog handler: "json" or the default tinted
	// text handler.
	LogHandler string
}

func NewLogConfig() *LogConfig {
	return &LogConfig{
		LogLevel:   "info",
		LogHandler: "default",
	}
}

func NewLogConfigFromEnv() *LogConfig {
	c := NewLogConfig()
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_HANDLER"); v != "" {
		c.LogHandler = v
	}
	return c
}
