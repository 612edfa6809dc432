package config

import (
	"context"
	"time"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	WaitForServices   string // duration to wait for a remote bundle source to be ready
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules, e.g. "*:* -debug:bundle"
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	TraceExporter     string // otlp, stdout, none
	MetricExporter    string // otlp, stdout, prometheus, none
	ProfilingPort     int    // port for profiling
	ServerAddr        string // listen addr for the http server
	Python            string // interpreter used to run the analysis scripts
	ScriptDir         string // directory containing the analysis scripts
	ScriptTimeout     string // max duration of a single script run
	MaxOutputBytes    int    // max size of script stdout
	BundleSource      string // file path or http(s) url of the cached reference bundle; empty = embedded
	FeaturedRaces     string // path to yaml file with featured races; empty = built-in list
)

const (
	DefaultScriptTimeout  = 180 * time.Second
	DefaultMaxOutputBytes = 10 * 1024 * 1024
)

// Config holds the configuration values which are used by the application
type Config struct {
	Python         string
	ScriptDir      string
	ScriptTimeout  time.Duration
	MaxOutputBytes int
	BundleSource   string
	FeaturedRaces  string
}

// FromFlags builds a Config from the resolved CLI values
func FromFlags() Config {
	timeout, err := time.ParseDuration(ScriptTimeout)
	if err != nil || timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	maxOutput := MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}
	return Config{
		Python:         Python,
		ScriptDir:      ScriptDir,
		ScriptTimeout:  timeout,
		MaxOutputBytes: maxOutput,
		BundleSource:   BundleSource,
		FeaturedRaces:  FeaturedRaces,
	}
}

type ctxKey struct{}

func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}
	return nil
}
