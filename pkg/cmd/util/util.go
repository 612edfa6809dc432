package util

import (
	"os"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/adapter"
	"github.com/mpapenbr/f1viz-service-go/pkg/config"
	"github.com/mpapenbr/f1viz-service-go/pkg/fallback"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the logger configured by the log-* flags and installs
// it as default logger
func SetupLogger() *log.Logger {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			ParseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			ParseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if config.LogFilter != "" {
		if filtered, err := logger.WithFilter(config.LogFilter); err == nil {
			logger = filtered
		} else {
			logger.Warn("ignoring invalid log filter",
				log.String("filter", config.LogFilter),
				log.ErrorField(err))
		}
	}
	log.ResetDefault(logger)
	return logger
}

// FeaturedRaces returns the configured featured races. The built-in list is
// used if no file is configured or the file cannot be read.
func FeaturedRaces(cfg *config.Config) []fallback.FeaturedRace {
	if cfg.FeaturedRaces == "" {
		return fallback.DefaultFeaturedRaces
	}
	races, err := fallback.LoadFeaturedRaces(cfg.FeaturedRaces)
	if err != nil {
		log.Warn("could not load featured races, using defaults",
			log.String("file", cfg.FeaturedRaces),
			log.ErrorField(err))
		return fallback.DefaultFeaturedRaces
	}
	return races
}

// NewPipeline wires the script adapter into a fallback pipeline
func NewPipeline(cfg *config.Config) *fallback.Pipeline {
	return fallback.New(adapter.New(adapter.WithConfig(cfg)))
}
