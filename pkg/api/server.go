// Package api provides the HTTP endpoints of the dashboard backend.
// Every data endpoint answers 200 with either real or placeholder data; the
// only client error is a year that is not a finite number.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/fallback"
	"github.com/mpapenbr/f1viz-service-go/pkg/model"
	"github.com/mpapenbr/f1viz-service-go/pkg/sanitize"
)

const (
	requestIDHeader  = "X-Request-ID"
	dataSourceHeader = "X-Data-Source"
)

// values of the X-Data-Source header
const (
	sourceLive        = "live"
	sourceReference   = "reference"
	sourcePlaceholder = "placeholder"
	sourceCached      = "cached"
)

type Resolver interface {
	Resolve(ctx context.Context, req model.DataRequest) fallback.Response
}

// BundleProvider serves the sections of the reference bundle
type BundleProvider interface {
	Slice(ctx context.Context, kind model.DatasetKind) (map[string]any, error)
}

type Option func(*Server)

func WithResolver(r Resolver) Option {
	return func(s *Server) {
		s.resolver = r
	}
}

func WithBundle(b BundleProvider) Option {
	return func(s *Server) {
		s.bundle = b
	}
}

func WithFeaturedRaces(races []fallback.FeaturedRace) Option {
	return func(s *Server) {
		if len(races) > 0 {
			s.featured = races
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

type Server struct {
	resolver Resolver
	bundle   BundleProvider
	featured []fallback.FeaturedRace
	l        *log.Logger
	tracer   trace.Tracer
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		featured: fallback.DefaultFeaturedRaces,
		l:        log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("f1viz")
	}
	return s
}

var (
	monza2023 = model.RaceRef{Year: 2023, Track: "Monza", Session: "R"}
	silverR   = model.RaceRef{Year: 2023, Track: "Silverstone", Session: "R"}

	trackMapDefaults  = defaults{ref: model.ReferenceRace, step: 1}
	telemetryDefaults = defaults{ref: model.ReferenceRace, step: 10}
	resultsDefaults   = defaults{ref: silverR, step: 1}
	strategyDefaults  = defaults{ref: monza2023, step: 1}
)

// Handler returns the routes, reachable with and without the /api prefix
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("GET "+prefix+"/track-map",
			s.dataHandler(model.KindTrackMap, trackMapDefaults))
		mux.HandleFunc("GET "+prefix+"/telemetry",
			s.dataHandler(model.KindTelemetry, telemetryDefaults))
		mux.HandleFunc("GET "+prefix+"/race-results",
			s.dataHandler(model.KindRaceResults, resultsDefaults))
		mux.HandleFunc("GET "+prefix+"/pit-strategy",
			s.dataHandler(model.KindPitStrategy, strategyDefaults))
		mux.HandleFunc("GET "+prefix+"/featured-races", s.featuredHandler)
	}
	mux.HandleFunc("GET /healthz", s.healthHandler)
	return s.withRequestID(mux)
}

func (s *Server) dataHandler(kind model.DatasetKind, d defaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		l := log.GetFromContext(ctx)
		req, err := parseRequest(r, kind, d)
		if err != nil {
			l.Debug("rejecting request", log.String("query", r.URL.RawQuery))
			writeJSON(w, l, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if req.Random {
			picked := fallback.PickFeatured(s.featured)
			req = req.WithRef(picked.RaceRef)
			l.Debug("picked featured race", log.String("name", picked.Name))
		}

		ctx, span := s.tracer.Start(ctx, "api."+string(kind), trace.WithAttributes(
			attribute.String("race", req.Ref().String()),
			attribute.Bool("cache", req.UseCache)))
		defer span.End()

		if req.UseCache || s.servedFromBundle(&req) {
			body := s.cached(ctx, l, req)
			w.Header().Set(dataSourceHeader, sourceCached)
			writeJSON(w, l, http.StatusOK, body)
			return
		}

		resp := s.resolve(ctx, l, req)
		w.Header().Set(dataSourceHeader, dataSource(&resp))
		writeJSON(w, l, http.StatusOK, resp.Body)
	}
}

// servedFromBundle reports whether req is answered from the bundle although
// cached mode was not requested. Pit strategies are only available for the
// bundled race.
func (s *Server) servedFromBundle(req *model.DataRequest) bool {
	return req.Kind == model.KindPitStrategy &&
		req.Year == monza2023.Year &&
		strings.Contains(strings.ToLower(req.Track), "monza")
}

//nolint:whitespace // editor/linter issue
func (s *Server) resolve(
	ctx context.Context, l *log.Logger, req model.DataRequest,
) fallback.Response {
	if s.resolver == nil {
		l.Warn("no resolver configured")
		return fallback.Placeholder(req, "data source not configured")
	}
	return s.resolver.Resolve(ctx, req)
}

// cached returns the bundle section for req. The section is sanitized like
// live data and marked with isCached. Errors lead to a placeholder.
//
//nolint:whitespace // editor/linter issue
func (s *Server) cached(
	ctx context.Context, l *log.Logger, req model.DataRequest,
) any {
	if s.bundle == nil {
		return fallback.Placeholder(req, "bundle not configured").Body
	}
	section, err := s.bundle.Slice(ctx, req.Kind)
	if err != nil {
		l.Error("could not load bundle", log.ErrorField(err))
		return fallback.Placeholder(req, err.Error()).Body
	}
	// bundle sections are downsampled already
	var doc map[string]any
	switch o := sanitize.Sanitize(req.Kind, section, 1).(type) {
	case sanitize.Ok:
		doc = o.Result.Document()
	default:
		doc = section
	}
	doc["isCached"] = true
	return doc
}

func (s *Server) featuredHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, log.GetFromContext(r.Context()), http.StatusOK, s.featured)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, log.GetFromContext(r.Context()), http.StatusOK,
		map[string]string{"status": "ok"})
}

// withRequestID assigns a request id (reusing one sent by the client) and
// puts a logger carrying it into the request context.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		l := s.l.With(log.String("requestId", id))
		l.Debug("request", log.String("method", r.Method), log.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(log.AddToContext(r.Context(), l)))
	})
}

func dataSource(resp *fallback.Response) string {
	switch {
	case resp.Terminal:
		return sourcePlaceholder
	case resp.Substituted:
		return sourceReference
	default:
		return sourceLive
	}
}

func writeJSON(w http.ResponseWriter, l *log.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		l.Error("could not write response", log.ErrorField(err))
	}
}
