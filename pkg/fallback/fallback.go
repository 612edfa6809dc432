// Package fallback runs the fetch pipeline and makes sure every request ends
// with a renderable document.
package fallback

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/model"
	"github.com/mpapenbr/f1viz-service-go/pkg/sanitize"
)

// Fetcher produces the raw document for a request.
// *adapter.Adapter is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, req model.DataRequest) (any, error)
}

type FetcherFunc func(ctx context.Context, req model.DataRequest) (any, error)

func (f FetcherFunc) Fetch(ctx context.Context, req model.DataRequest) (any, error) {
	return f(ctx, req)
}

// Response is the outcome of a resolved request. Body is ready to be encoded
// as JSON.
type Response struct {
	Requested model.RaceRef
	Served    model.RaceRef
	// Substituted is set if the body was produced for the reference race
	Substituted bool
	// Terminal is set if the body is a placeholder
	Terminal bool
	// Malformed is set if the raw document was passed on unchanged
	Malformed bool
	Body      any
}

type Pipeline struct {
	fetcher       Fetcher
	reference     model.RaceRef
	l             *log.Logger
	tracer        trace.Tracer
	substitutions metric.Int64Counter
	placeholders  metric.Int64Counter
	malformed     metric.Int64Counter
}

type Option func(*Pipeline)

// WithReference sets the race used when a request yields no data
func WithReference(ref model.RaceRef) Option {
	return func(p *Pipeline) {
		p.reference = ref
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		p.l = l
	}
}

func New(fetcher Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:   fetcher,
		reference: model.ReferenceRace,
		l:         log.Default().Named("fallback"),
		tracer:    otel.Tracer("f1viz.fallback"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.setupMetrics()
	return p
}

func (p *Pipeline) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("f1viz.fallback")
	var err error
	if p.substitutions, err = meter.Int64Counter("f1viz.fallback.substitutions",
		metric.WithDescription("requests answered with data of the reference race"),
	); err != nil {
		p.l.Warn("could not create metric", log.ErrorField(err))
	}
	if p.placeholders, err = meter.Int64Counter("f1viz.fallback.placeholders",
		metric.WithDescription("requests answered with a placeholder document"),
	); err != nil {
		p.l.Warn("could not create metric", log.ErrorField(err))
	}
	if p.malformed, err = meter.Int64Counter("f1viz.fallback.malformed",
		metric.WithDescription("raw documents passed on without sanitizing"),
	); err != nil {
		p.l.Warn("could not create metric", log.ErrorField(err))
	}
}

func (p *Pipeline) Reference() model.RaceRef {
	return p.reference
}

// Resolve fetches and sanitizes the data for req.
// An empty result for a race other than the reference race is retried once
// with the reference race. Fetch failures and results that stay empty end in
// a placeholder. Resolve never fails.
func (p *Pipeline) Resolve(ctx context.Context, req model.DataRequest) Response {
	ctx, span := p.tracer.Start(ctx, "fallback.Resolve", trace.WithAttributes(
		attribute.String("kind", string(req.Kind)),
		attribute.String("race", req.Ref().String())))
	defer span.End()

	resp := Response{Requested: req.Ref(), Served: req.Ref()}
	outcome, err := p.run(ctx, req)
	if err != nil {
		return p.placeholder(ctx, req, err.Error())
	}

	switch o := outcome.(type) {
	case sanitize.Malformed:
		p.l.Warn("unexpected document shape, passing it on",
			log.String("kind", string(req.Kind)),
			log.Stringer("race", req.Ref()),
			log.String("reason", o.Reason))
		p.count(ctx, p.malformed, req.Kind)
		resp.Malformed = true
		resp.Body = o.Raw
		return resp

	case sanitize.Ok:
		if !o.Result.Empty() {
			resp.Body = o.Result
			return resp
		}
		if req.Ref() != p.reference {
			if sub, ok := p.substitute(ctx, req); ok {
				return sub
			}
		}
		if msg := o.Result.UpstreamError(); msg != "" {
			p.l.Info("passing on upstream error",
				log.String("kind", string(req.Kind)),
				log.Stringer("race", req.Ref()),
				log.String("upstream", msg))
			resp.Body = o.Result
			return resp
		}
	}
	return p.placeholder(ctx, req, "no data available")
}

// substitute runs req against the reference race. Only a non empty result
// is accepted.
func (p *Pipeline) substitute(ctx context.Context, req model.DataRequest) (Response, bool) {
	p.l.Warn("no data, falling back to reference race",
		log.String("kind", string(req.Kind)),
		log.Stringer("race", req.Ref()),
		log.Stringer("reference", p.reference))

	outcome, err := p.run(ctx, req.WithRef(p.reference))
	if err != nil {
		return Response{}, false
	}
	ok, isOk := outcome.(sanitize.Ok)
	if !isOk || ok.Result.Empty() {
		return Response{}, false
	}
	p.count(ctx, p.substitutions, req.Kind)
	doc := ok.Result.Document()
	doc["requested"] = req.Ref()
	return Response{
		Requested:   req.Ref(),
		Served:      p.reference,
		Substituted: true,
		Body:        doc,
	}, true
}

func (p *Pipeline) run(ctx context.Context, req model.DataRequest) (sanitize.Outcome, error) {
	raw, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return sanitize.Sanitize(req.Kind, raw, req.Step), nil
}

func (p *Pipeline) placeholder(ctx context.Context, req model.DataRequest, msg string) Response {
	p.l.Warn("answering with placeholder",
		log.String("kind", string(req.Kind)),
		log.Stringer("race", req.Ref()),
		log.String("error", msg))
	p.count(ctx, p.placeholders, req.Kind)
	return Placeholder(req, msg)
}

//nolint:whitespace // editor/linter issue
func (p *Pipeline) count(
	ctx context.Context, c metric.Int64Counter, kind model.DatasetKind,
) {
	if c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	}
}

var titleSuffix = map[model.DatasetKind]string{
	model.KindTrackMap:    "",
	model.KindTelemetry:   " Telemetry",
	model.KindRaceResults: " Results",
	model.KindPitStrategy: " Pit Strategy",
}

// Title is the label used for placeholder documents
func Title(req model.DataRequest) string {
	return fmt.Sprintf("%s %s %d%s (Unavailable)",
		req.Track, req.Session, req.Year, titleSuffix[req.Kind])
}

// Placeholder builds the terminal document for req. It carries the requested
// race, an error message and an empty collection of the requested kind.
func Placeholder(req model.DataRequest, msg string) Response {
	doc := map[string]any{
		"year":    req.Year,
		"track":   strings.ToLower(req.Track),
		"session": req.Session,
		"title":   Title(req),
		"error":   msg,
	}
	switch req.Kind {
	case model.KindTrackMap:
		doc["data"] = model.EmptyTrackMapData()
	case model.KindTelemetry:
		doc["driver"] = req.Driver
		doc["samples"] = []model.Sample{}
	case model.KindRaceResults:
		doc["data"] = []model.ResultRow{}
	case model.KindPitStrategy:
		doc["data"] = []model.DriverStints{}
	}
	return Response{
		Requested: req.Ref(),
		Served:    req.Ref(),
		Terminal:  true,
		Body:      doc,
	}
}
