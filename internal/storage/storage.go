// Package storage provides the key-value store backing session slots.
// Values are opaque JSON blobs indexed by structured string keys
// (chat:<id>, user:<id>, chat:<id>;user:<id>); the store never
// interprets them. Implementations must be safe for concurrent use.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Common errors for store construction.
var (
	ErrInvalidConfig    = errors.New("invalid store configuration")
	ErrInvalidStoreKind = errors.New("invalid store kind")
)

// Store is the persistence contract consumed by the session manager.
// Get returns (nil, nil) when no record exists for the key (absence is
// not an error). Any returned error means the store itself is
// unavailable and the caller's turn must abort.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Kind selects a store driver.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindFile     Kind = "file"
	KindRedis    Kind = "redis"
	KindSupabase Kind = "supabase"
)

// Option is a functional option for configuring a store.
type Option func(*config)

type config struct {
	filePath string

	redisClient *redis.Client
	redisTTL    time.Duration

	supabaseURL   string
	supabaseKey   string
	supabaseTable string
}

// WithFilePath sets the backing file for the file store.
func WithFilePath(path string) Option {
	return func(c *config) { c.filePath = path }
}

// WithRedisClient sets the client for the Redis store.
func WithRedisClient(client *redis.Client) Option {
	return func(c *config) { c.redisClient = client }
}

// WithRedisTTL sets the expiry for Redis keys.
func WithRedisTTL(ttl time.Duration) Option {
	return func(c *config) { c.redisTTL = ttl }
}

// WithSupabase sets connection parameters for the Supabase store.
func WithSupabase(url, apiKey, table string) Option {
	return func(c *config) {
		c.supabaseURL = url
		c.supabaseKey = apiKey
		c.supabaseTable = table
	}
}

// New creates a Store for the given kind.
func New(kind Kind, opts ...Option) (Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch kind {
	case KindMemory:
		return NewMemory(), nil
	case KindFile:
		if cfg.filePath == "" {
			return nil, ErrInvalidConfig
		}
		return NewFile(cfg.filePath)
	case KindRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return NewRedis(cfg.redisClient, cfg.redisTTL), nil
	case KindSupabase:
		if cfg.supabaseURL == "" || cfg.supabaseKey == "" {
			return nil, ErrInvalidConfig
		}
		return NewSupabase(cfg.supabaseURL, cfg.supabaseKey, cfg.supabaseTable)
	default:
		return nil, ErrInvalidStoreKind
	}
}
