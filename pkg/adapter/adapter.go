package adapter

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/config"
	"github.com/mpapenbr/f1viz-service-go/pkg/model"
)

const maxStderrBytes = 64 * 1024

// DefaultScripts maps the dataset kinds to the analysis scripts
var DefaultScripts = map[model.DatasetKind]string{
	model.KindTrackMap:    "track_map.py",
	model.KindTelemetry:   "telemetry.py",
	model.KindRaceResults: "race_results.py",
	model.KindPitStrategy: "pit_strategy.py",
}

// Adapter invokes the external analysis scripts. Each call spawns exactly one
// process; there is no retry and no deduplication of concurrent calls.
type Adapter struct {
	runner    Runner
	python    string
	scriptDir string
	scripts   map[model.DatasetKind]string
	timeout   time.Duration
	maxOutput int
	l         *log.Logger
	calls     metric.Int64Counter
	duration  metric.Float64Histogram
}

type Option func(*Adapter)

func WithRunner(r Runner) Option {
	return func(a *Adapter) {
		a.runner = r
	}
}

func WithPython(python string) Option {
	return func(a *Adapter) {
		if python != "" {
			a.python = python
		}
	}
}

func WithScriptDir(dir string) Option {
	return func(a *Adapter) {
		a.scriptDir = dir
	}
}

// WithScript overrides the script file used for kind; an empty file disables
// the kind.
func WithScript(kind model.DatasetKind, file string) Option {
	return func(a *Adapter) {
		a.scripts[kind] = file
	}
}

func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithMaxOutput(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxOutput = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) {
		a.l = l
	}
}

// WithConfig applies the script related settings of cfg
func WithConfig(cfg *config.Config) Option {
	return func(a *Adapter) {
		WithPython(cfg.Python)(a)
		WithScriptDir(cfg.ScriptDir)(a)
		WithTimeout(cfg.ScriptTimeout)(a)
		WithMaxOutput(cfg.MaxOutputBytes)(a)
	}
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		runner:    ExecRunner{},
		python:    "python",
		scriptDir: "fastf1",
		scripts:   make(map[model.DatasetKind]string, len(DefaultScripts)),
		timeout:   config.DefaultScriptTimeout,
		maxOutput: config.DefaultMaxOutputBytes,
		l:         log.Default().Named("adapter"),
	}
	for k, v := range DefaultScripts {
		a.scripts[k] = v
	}
	for _, opt := range opts {
		opt(a)
	}
	a.setupMetrics()
	return a
}

func (a *Adapter) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("f1viz.adapter")
	var err error
	if a.calls, err = meter.Int64Counter("f1viz.adapter.calls",
		metric.WithDescription("number of analysis script invocations"),
	); err != nil {
		a.l.Warn("could not create metric", log.ErrorField(err))
	}
	if a.duration, err = meter.Float64Histogram("f1viz.adapter.duration",
		metric.WithDescription("duration of analysis script invocations"),
		metric.WithUnit("s"),
	); err != nil {
		a.l.Warn("could not create metric", log.ErrorField(err))
	}
}

// ScriptPath returns the script used for kind or "" if none is configured
func (a *Adapter) ScriptPath(kind model.DatasetKind) string {
	file := a.scripts[kind]
	if file == "" {
		return ""
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(a.scriptDir, file)
}

// Args builds the positional flags passed to the script. UseCache and Random
// are not part of the script contract.
func Args(req *model.DataRequest) []string {
	args := []string{
		"--year", strconv.Itoa(req.Year),
		"--track", req.Track,
		"--session", req.Session,
	}
	if req.Kind == model.KindTelemetry {
		args = append(args, "--step", strconv.Itoa(req.Step))
		if req.Driver != "" {
			args = append(args, "--driver", req.Driver)
		}
	}
	return args
}

// Fetch runs the script for req and returns the parsed stdout document.
// Every failure is reported as *AdapterFailure.
func (a *Adapter) Fetch(ctx context.Context, req model.DataRequest) (any, error) {
	script := a.ScriptPath(req.Kind)
	if script == "" {
		return nil, failure(string(req.Kind), ErrNoScript, nil)
	}
	if err := req.Validate(); err != nil {
		return nil, failure(script, ErrInvalidRequest, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	stdout := &cappedBuffer{limit: a.maxOutput, onOverflow: cancel}
	stderr := &cappedBuffer{limit: maxStderrBytes}
	args := append([]string{script}, Args(&req)...)

	a.l.Debug("running script",
		log.String("cmd", a.python),
		log.Strings("args", args))
	start := time.Now()
	runErr := a.runner.Run(runCtx, a.python, args, stdout, stderr)
	elapsed := time.Since(start)

	if len(stderr.Bytes()) > 0 {
		a.l.Warn("script stderr",
			log.String("script", script),
			log.String("stderr", strings.TrimSpace(string(stderr.Bytes()))))
	}

	result, err := a.evaluate(runCtx, script, runErr, stdout)
	a.record(ctx, req.Kind, err, elapsed)
	if err != nil {
		a.l.Error("script failed",
			log.String("script", script),
			log.Stringer("race", req.Ref()),
			log.Duration("duration", elapsed),
			log.ErrorField(err))
		return nil, err
	}
	a.l.Debug("script done",
		log.String("script", script),
		log.Stringer("race", req.Ref()),
		log.Duration("duration", elapsed),
		log.Int("bytes", len(stdout.Bytes())))
	return result, nil
}

//nolint:whitespace // editor/linter issue
func (a *Adapter) evaluate(
	runCtx context.Context, script string, runErr error, stdout *cappedBuffer,
) (any, error) {
	switch {
	case stdout.overflow:
		return nil, failure(script, ErrOutputTooLarge, nil)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return nil, failure(script, ErrTimeout, runErr)
	case runErr != nil:
		return nil, failure(script, ErrExit, runErr)
	}
	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return nil, failure(script, ErrInvalidOutput, nil)
	}
	result, err := oj.Parse(stdout.Bytes())
	if err != nil {
		return nil, failure(script, ErrInvalidOutput, err)
	}
	return result, nil
}

//nolint:whitespace // editor/linter issue
func (a *Adapter) record(
	ctx context.Context, kind model.DatasetKind, err error, elapsed time.Duration,
) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome))
	if a.calls != nil {
		a.calls.Add(ctx, 1, attrs)
	}
	if a.duration != nil {
		a.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
