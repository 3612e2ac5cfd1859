/*
Package cache decorates a commission.ParameterSource with a TTL cache.

PURPOSE:
  Parameters are read on every preview and change a few times a month.
  Source keeps lookups off the backend:

  - entries live for a fixed TTL, "no parameter" answers included
  - concurrent misses on one scope share a single backend call
  - saving a parameter calls Invalidate(scope); a load already in flight
    when Invalidate runs does not write its answer back

  The commission core never sees the cache; it only sees a
  ParameterSource.

SEE ALSO:
  - memory.go: In-process TTL map
  - redis.go: Shared cache for several server instances
*/
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/metrics"
)

const DefaultTTL = 5 * time.Minute

// Entry is a cached answer. Parameter is nil when the scope has no active
// parameter.
type Entry struct {
	Parameter *commission.Parameter
}

type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Source struct {
	next    commission.ParameterSource
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics

	// mu guards gen and orders cache writes against Invalidate.
	mu  sync.Mutex
	gen map[string]uint64
}

type Option func(*Source)

func WithTTL(ttl time.Duration) Option {
	return func(s *Source) { s.ttl = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Source) { s.metrics = m }
}

func New(next commission.ParameterSource, store Store, opts ...Option) (*Source, error) {
	if next == nil {
		return nil, fmt.Errorf("parameter source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	s := &Source{next: next, store: store, ttl: DefaultTTL, logger: slog.Default(), gen: map[string]uint64{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func key(scope commission.Scope) string {
	return "param:" + scope.Key()
}

// GetActiveParameter implements commission.ParameterSource. A failing cache
// store degrades to a direct lookup.
func (s *Source) GetActiveParameter(ctx context.Context, scope commission.Scope) (*commission.Parameter, error) {
	k := key(scope)

	e, ok, err := s.store.Get(ctx, k)
	if err != nil {
		s.logger.WarnContext(ctx, "parameter cache read failed", "scope", scope.String(), "error", err)
	} else if ok {
		s.metrics.CacheHit()
		return clone(e.Parameter), nil
	}
	s.metrics.CacheMiss()

	v, err, _ := s.group.Do(k, func() (any, error) {
		// The load is shared; one caller giving up must not fail the others.
		loadCtx := context.WithoutCancel(ctx)
		g := s.generation(k)
		p, err := s.next.GetActiveParameter(loadCtx, scope)
		if err != nil {
			return nil, err
		}
		s.storeIfCurrent(loadCtx, k, g, scope, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(*commission.Parameter)), nil
}

func (s *Source) generation(k string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[k]
}

// storeIfCurrent caches p unless scope was invalidated since generation g
// was read.
func (s *Source) storeIfCurrent(ctx context.Context, k string, g uint64, scope commission.Scope, p *commission.Parameter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[k] != g {
		s.logger.DebugContext(ctx, "parameter invalidated during load, not cached", "scope", scope.String())
		return
	}
	if err := s.store.Set(ctx, k, Entry{Parameter: p}, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "parameter cache write failed", "scope", scope.String(), "error", err)
	}
}

// Invalidate drops the cached answer for scope. Lookups arriving after it
// returns start a fresh load.
func (s *Source) Invalidate(ctx context.Context, scope commission.Scope) error {
	k := key(scope)
	s.mu.Lock()
	s.gen[k]++
	s.mu.Unlock()
	s.group.Forget(k)

	if err := s.store.Delete(ctx, k); err != nil {
		return fmt.Errorf("invalidate %s: %w", scope, err)
	}
	return nil
}

// clone keeps callers from mutating the cached tiers.
func clone(p *commission.Parameter) *commission.Parameter {
	if p == nil {
		return nil
	}
	c := *p
	c.Tiers = append([]commission.Tier(nil), p.Tiers...)
	return &c
}
