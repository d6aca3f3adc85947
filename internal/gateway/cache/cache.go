// Package cache puts a Redis read-through cache in front of a gateway.
//
// Keys carry a per-platform generation number. A successful start, stop or
// restart increments it, which orphans every cached read of that platform
// until the entries expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloudwise/internal/common/metrics"
	"cloudwise/internal/gateway"
	"cloudwise/internal/models"

	"github.com/redis/go-redis/v9"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Gateway decorates another gateway. Redis failures never fail a call; the
// inner gateway is used directly instead.
type Gateway struct {
	inner  gateway.Gateway
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger Logger
}

var _ gateway.Gateway = (*Gateway)(nil)

func New(inner gateway.Gateway, rdb redis.Cmdable, ttl time.Duration, prefix string, log Logger) *Gateway {
	if prefix == "" {
		prefix = "cloudwise"
	}
	return &Gateway{inner: inner, rdb: rdb, ttl: ttl, prefix: prefix, logger: log}
}

func (g *Gateway) Platform() string { return g.inner.Platform() }

func (g *Gateway) ListInstances(ctx context.Context, q gateway.InstanceQuery) (*models.InstanceListing, error) {
	return read(ctx, g, "list_instances", q, func(l *models.InstanceListing) bool { return len(l.Warnings) == 0 },
		func(ctx context.Context) (*models.InstanceListing, error) { return g.inner.ListInstances(ctx, q) })
}

func (g *Gateway) ListStorage(ctx context.Context) (*models.StorageListing, error) {
	return read(ctx, g, "list_storage", nil, func(l *models.StorageListing) bool { return len(l.Warnings) == 0 },
		g.inner.ListStorage)
}

// GetCostAndUsage is keyed by the window's dates so repeated queries on the
// same day share an entry.
func (g *Gateway) GetCostAndUsage(ctx context.Context, q gateway.CostQuery) (*models.CostReport, error) {
	return read(ctx, g, "get_cost_and_usage", q.Period(), func(r *models.CostReport) bool { return len(r.Warnings) == 0 },
		func(ctx context.Context) (*models.CostReport, error) { return g.inner.GetCostAndUsage(ctx, q) })
}

func (g *Gateway) ListGroups(ctx context.Context) ([]models.Group, error) {
	return read(ctx, g, "list_groups", nil, func([]models.Group) bool { return true }, g.inner.ListGroups)
}

// Metrics and status are live views and bypass the cache.

func (g *Gateway) GetMetrics(ctx context.Context, q gateway.MetricQuery) (*models.MetricSeries, error) {
	return g.inner.GetMetrics(ctx, q)
}

func (g *Gateway) GetResourceStatus(ctx context.Context, ref gateway.ResourceRef) (*models.ResourceStatus, error) {
	return g.inner.GetResourceStatus(ctx, ref)
}

func (g *Gateway) Start(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.mutate(ctx, ref, g.inner.Start)
}

func (g *Gateway) Stop(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.mutate(ctx, ref, g.inner.Stop)
}

func (g *Gateway) Restart(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.mutate(ctx, ref, g.inner.Restart)
}

func (g *Gateway) mutate(ctx context.Context, ref gateway.ResourceRef, fn func(context.Context, gateway.ResourceRef) (*models.ActionResult, error)) (*models.ActionResult, error) {
	result, err := fn(ctx, ref)
	if err != nil {
		return result, err
	}
	if err := g.Invalidate(ctx); err != nil {
		g.logger.Warn("Cache invalidation failed", map[string]interface{}{
			"platform": g.Platform(),
			"error":    err.Error(),
		})
	}
	return result, nil
}

// Invalidate starts a new generation for the platform.
func (g *Gateway) Invalidate(ctx context.Context) error {
	return g.rdb.Incr(ctx, g.generationKey()).Err()
}

func (g *Gateway) generationKey() string {
	return fmt.Sprintf("%s:%s:generation", g.prefix, g.Platform())
}

func (g *Gateway) generation(ctx context.Context) (int64, error) {
	gen, err := g.rdb.Get(ctx, g.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Key builds the cache key of one read. It is exported for tests and
// operational tooling.
func (g *Gateway) Key(generation int64, operation string, args any) string {
	digest := "none"
	if args != nil {
		raw, _ := json.Marshal(args)
		sum := sha256.Sum256(raw)
		digest = hex.EncodeToString(sum[:8])
	}
	return fmt.Sprintf("%s:%s:g%d:%s:%s", g.prefix, g.Platform(), generation, operation, digest)
}

func read[T any](ctx context.Context, g *Gateway, operation string, args any, cacheable func(T) bool, fetch func(context.Context) (T, error)) (T, error) {
	gen, err := g.generation(ctx)
	if err != nil {
		g.bypass(operation, err)
		return fetch(ctx)
	}
	key := g.Key(gen, operation, args)

	raw, err := g.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			metrics.CacheLookups.WithLabelValues(operation, "hit").Inc()
			g.logger.Debug("Cache hit", map[string]interface{}{"key": key})
			return cached, nil
		}
	case !errors.Is(err, redis.Nil):
		g.bypass(operation, err)
		return fetch(ctx)
	}
	metrics.CacheLookups.WithLabelValues(operation, "miss").Inc()

	value, err := fetch(ctx)
	if err != nil || !cacheable(value) {
		return value, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := g.rdb.Set(ctx, key, data, g.ttl).Err(); err != nil {
		g.logger.Warn("Cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return value, nil
}

func (g *Gateway) bypass(operation string, err error) {
	metrics.CacheLookups.WithLabelValues(operation, "error").Inc()
	g.logger.Warn("Cache unavailable, reading through", map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
	})
}
