// Package bundle provides the pre-baked reference document served in cached
// mode. The document is loaded once per process and shared by all callers.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ohler55/ojg/oj"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/model"
	"github.com/mpapenbr/f1viz-service-go/pkg/utils/cache"
	"github.com/mpapenbr/f1viz-service-go/pkg/utils/cache/loadercache"
)

var ErrInvalidBundle = errors.New("invalid bundle")

// the cache holds exactly one entry
const bundleKey = "bundle"

type Cache struct {
	source Source
	l      *log.Logger
	cache  cache.Cache[string, model.Bundle]
	loads  metric.Int64Counter
}

type Option func(*Cache)

func WithSource(s Source) Option {
	return func(c *Cache) {
		c.source = s
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.l = l
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		source: Embedded(),
		l:      log.Default().Named("bundle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = loadercache.New(
		loadercache.WithLoader(c.load),
		loadercache.WithExpiration[string, model.Bundle](0),
		loadercache.WithLogger[string, model.Bundle](c.l))

	var err error
	if c.loads, err = otel.GetMeterProvider().Meter("f1viz.bundle").Int64Counter(
		"f1viz.bundle.loads",
		metric.WithDescription("attempts to load the reference bundle"),
	); err != nil {
		c.l.Warn("could not create metric", log.ErrorField(err))
	}
	return c
}

// GetOrLoad returns the bundle. The first call loads it, concurrent callers
// wait for the same load. A failed load is reported to every waiter of that
// attempt and retried by the next call.
func (c *Cache) GetOrLoad(ctx context.Context) (*model.Bundle, error) {
	return c.cache.Get(ctx, bundleKey)
}

// Slice returns the envelope for kind
func (c *Cache) Slice(ctx context.Context, kind model.DatasetKind) (map[string]any, error) {
	b, err := c.GetOrLoad(ctx)
	if err != nil {
		return nil, err
	}
	s := b.Slice(kind)
	if s == nil {
		return nil, fmt.Errorf("%w: no %s section", ErrInvalidBundle, kind)
	}
	return s, nil
}

// Reset drops the loaded bundle
func (c *Cache) Reset() {
	c.cache.InvalidateAll(context.Background())
}

func (c *Cache) Source() Source {
	return c.source
}

func (c *Cache) load(ctx context.Context, _ string) (*model.Bundle, error) {
	c.l.Info("loading bundle", log.Stringer("source", c.source))
	data, err := c.source.Read(ctx)
	if err == nil {
		var b *model.Bundle
		if b, err = Parse(data); err == nil {
			c.record(ctx, "ok")
			return b, nil
		}
	}
	c.record(ctx, "failed")
	return nil, fmt.Errorf("load bundle from %s: %w", c.source, err)
}

func (c *Cache) record(ctx context.Context, outcome string) {
	if c.loads != nil {
		c.loads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// Parse decodes a bundle document. The sections track_map, telemetry,
// race_results and strategy are required, metadata is optional.
func Parse(data []byte) (*model.Bundle, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document is not an object", ErrInvalidBundle)
	}
	section := func(key string, required bool) (map[string]any, error) {
		v, ok := root[key].(map[string]any)
		if !ok && required {
			return nil, fmt.Errorf("%w: section %s missing", ErrInvalidBundle, key)
		}
		return v, nil
	}
	b := &model.Bundle{}
	for _, s := range []struct {
		key      string
		target   *map[string]any
		required bool
	}{
		{string(model.KindTrackMap), &b.TrackMap, true},
		{string(model.KindTelemetry), &b.Telemetry, true},
		{string(model.KindRaceResults), &b.RaceResults, true},
		{string(model.KindPitStrategy), &b.Strategy, true},
		{"metadata", &b.Metadata, false},
	} {
		if *s.target, err = section(s.key, s.required); err != nil {
			return nil, err
		}
	}
	return b, nil
}

var (
	defaultMu    sync.Mutex
	defaultCache *Cache
)

// Init replaces the process wide cache. Called once during startup.
func Init(opts ...Option) *Cache {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCache = New(opts...)
	return defaultCache
}

// Default returns the process wide cache, creating one for the embedded
// bundle if Init was not called.
func Default() *Cache {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCache == nil {
		defaultCache = New()
	}
	return defaultCache
}

// Reset drops the bundle held by the process wide cache
func Reset() {
	Default().Reset()
}

func GetOrLoad(ctx context.Context) (*model.Bundle, error) {
	return Default().GetOrLoad(ctx)
}
