package config

import (
	"errors"
	"os"
	"strings"
)

// Config holds the infra-level settings that don't make sense as a
// per-invocation CLI flag: where the event/result sinks default to, which
// exchange label a run is tagged with, and the logger's verbosity.
type Config struct {
	EventsDir       string
	ResultsDir      string
	DefaultExchange string
	LogLevel        string
}

func Load() (Config, error) {
	var c Config

	c.EventsDir = os.Getenv("BACKTEST_EVENTS_DIR")
	if c.EventsDir == "" {
		c.EventsDir = "./events"
	}
	c.ResultsDir = os.Getenv("BACKTEST_RESULTS_DIR")
	if c.ResultsDir == "" {
		c.ResultsDir = "./results"
	}
	c.DefaultExchange = strings.TrimSpace(os.Getenv("BACKTEST_EXCHANGE"))
	if c.DefaultExchange == "" {
		c.DefaultExchange = "simulated"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("BACKTEST_LOG_LEVEL")))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warn" && c.LogLevel != "error" {
		return c, errors.New("invalid BACKTEST_LOG_LEVEL: use debug, info, warn, or error")
	}

	return c, nil
}
