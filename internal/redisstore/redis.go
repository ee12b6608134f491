// Package redisstore is the narrow gateway to the key-value store. The rest
// of the system only ever writes whole field sets, reads them back, and scans
// key prefixes; everything else redis can do stays out of reach.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrUnavailable marks a store operation that failed because the store could
// not be reached. Callers can distinguish an outage from an empty result.
var ErrUnavailable = errors.New("store unavailable")

type Options struct {
	Addr string
	DB   int
}

// Gateway wraps an injected redis client. The client is pool-backed and safe
// for concurrent use, so the gateway carries no locking of its own.
type Gateway struct {
	client *redis.Client
}

func New(client *redis.Client) *Gateway {
	return &Gateway{client: client}
}

// Connect dials the store and verifies it with a ping. A failed ping is
// reported, not retried; the caller decides whether to keep running.
func Connect(ctx context.Context, opt Options) (*Gateway, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opt.Addr,
		DB:          opt.DB,
		DialTimeout: 5 * time.Second,
	})
	g := New(client)
	if err := g.Ping(ctx); err != nil {
		return g, err
	}
	return g, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (g *Gateway) Close() error {
	return g.client.Close()
}

// wrapErr reserves ErrUnavailable for connectivity failures. A reply the
// server itself produced (wrong type on a key, OOM) is a plain command
// error, not an outage.
func wrapErr(err error, op, key string) error {
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, op, key, err)
}

// WriteFields upserts all given fields onto key. Same-named fields get new
// values, others are untouched; callers here always write the complete field
// set, so in practice this is a full overwrite.
func (g *Gateway) WriteFields(ctx context.Context, key string, fields map[string]string) error {
	if err := g.client.HSet(ctx, key, fields).Err(); err != nil {
		return wrapErr(err, "hset", key)
	}
	return nil
}

// ReadFields returns the full field map for key, empty when the key is absent.
func (g *Gateway) ReadFields(ctx context.Context, key string) (map[string]string, error) {
	data, err := g.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapErr(err, "hgetall", key)
	}
	return data, nil
}

// ScanKeys returns all existing keys matching pattern, using SCAN rather
// than KEYS so a large keyspace does not block the store.
func (g *Gateway) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := g.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr(err, "scan", pattern)
	}
	return keys, nil
}

// ExpireKey sets a time-to-live on key.
func (g *Gateway) ExpireKey(ctx context.Context, key string, ttl time.Duration) error {
	if err := g.client.Expire(ctx, key, ttl).Err(); err != nil {
		return wrapErr(err, "expire", key)
	}
	return nil
}
