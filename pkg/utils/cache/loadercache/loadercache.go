package loadercache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/utils/cache"
)

// based on github.com/kittpat1413/go-common/framework/cache/localcache/localcache.go

type (
	Option[K comparable, V any] func(*config[K, V])
	item[T any]                 struct {
		data    T
		expires *time.Time
	}
	LoaderFunc[K comparable, V any] func(context.Context, K) (*V, error)
	config[K comparable, V any]     struct {
		expiration time.Duration
		loader     LoaderFunc[K, V]
		l          *log.Logger
	}
	loaderCache[K comparable, V any] struct {
		mutex  sync.Mutex
		items  map[K]item[*V]
		gen    uint64 // bumped by invalidation; loads started before are not stored
		group  singleflight.Group
		config *config[K, V]
	}
)

// WithExpiration sets the lifetime of loaded entries. 0 keeps entries until
// they are invalidated.
func WithExpiration[K comparable, V any](expiration time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		c.expiration = expiration
	}
}

func WithLoader[K comparable, V any](lf LoaderFunc[K, V]) Option[K, V] {
	return func(c *config[K, V]) {
		c.loader = lf
	}
}

func WithLogger[K comparable, V any](arg *log.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.l = arg
	}
}

func New[K comparable, V any](opts ...Option[K, V]) cache.Cache[K, V] {
	c := &config[K, V]{
		expiration: 5 * time.Minute,
		l:          log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &loaderCache[K, V]{
		items:  make(map[K]item[*V]),
		config: c,
	}
}

func (c *loaderCache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	if c.config.loader == nil {
		return nil, cache.ErrCacheMiss
	}
	ch := c.group.DoChan(fmt.Sprint(key), func() (any, error) {
		// a load started by a canceled caller must still serve the others
		return c.load(context.WithoutCancel(ctx), key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		c.config.l.Debug("loaderCache.Get", log.Any("key", key), log.Bool("shared", res.Shared))
		return res.Val.(*V), nil
	}
}

func (c *loaderCache[K, V]) lookup(key K) (*V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	cacheItem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if cacheItem.expires != nil && cacheItem.expires.Before(time.Now()) {
		delete(c.items, key)
		return nil, false
	}
	return cacheItem.data, true
}

func (c *loaderCache[K, V]) load(ctx context.Context, key K) (*V, error) {
	// another load may have finished between lookup and DoChan
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	c.mutex.Lock()
	gen := c.gen
	c.mutex.Unlock()
	c.config.l.Debug("loaderCache.load", log.Any("key", key))
	v, err := c.config.loader(ctx, key)
	if err != nil {
		c.config.l.Error("error loading entry", log.ErrorField(err))
		return nil, err
	}
	entry := item[*V]{data: v}
	if c.config.expiration > 0 {
		expires := time.Now().Add(c.config.expiration)
		entry.expires = &expires
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if gen != c.gen {
		c.config.l.Debug("discarding load started before invalidation", log.Any("key", key))
		return v, nil
	}
	c.items[key] = entry
	return v, nil
}

func (c *loaderCache[K, V]) Invalidate(ctx context.Context, key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.config.l.Debug("Invalidate", log.Any("key", key))
	c.gen++
	delete(c.items, key)
	c.group.Forget(fmt.Sprint(key))
	c.config.l.Debug("Invalidate", log.Int("remain items", len(c.items)))
}

func (c *loaderCache[K, V]) InvalidateAll(ctx context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.config.l.Debug("InvalidateAll", log.Int("items", len(c.items)))
	c.gen++
	c.items = make(map[K]item[*V])
}
