package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

const (
	// DefaultTTL bounds how stale a cached offering can get if an
	// invalidation is lost
	DefaultTTL = 60 * time.Second

	// KeyPrefix is the prefix for single offering keys
	KeyPrefix = "offering:"

	// ListKeyPrefix is the prefix for catalog listing keys
	ListKeyPrefix = "offerings:list:"
)

// OfferingCache is a Redis-backed read cache for the offering catalog
type OfferingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

var _ offering.Cache = (*OfferingCache)(nil)

// NewOfferingCache creates a new offering cache
func NewOfferingCache(client *redis.Client, log *logger.Logger) *OfferingCache {
	return NewOfferingCacheWithTTL(client, DefaultTTL, log)
}

// NewOfferingCacheWithTTL creates a new offering cache with custom TTL
func NewOfferingCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *OfferingCache {
	return &OfferingCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "offering_cache"),
	}
}

// NewClient parses addr either as a redis:// URL or as host:port
func NewClient(addr, password string) (*redis.Client, error) {
	if opts, err := redis.ParseURL(addr); err == nil {
		if password != "" {
			opts.Password = password
		}
		return redis.NewClient(opts), nil
	}
	if addr == "" {
		return nil, errors.New("redis address is empty")
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password}), nil
}

func offeringKey(id uuid.UUID) string {
	return KeyPrefix + id.String()
}

func listKey(key string) string {
	return ListKeyPrefix + key
}

// Get retrieves a cached offering
func (c *OfferingCache) Get(ctx context.Context, id uuid.UUID) (*offering.Offering, bool, error) {
	val, err := c.client.Get(ctx, offeringKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "offering_id", id)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "offering_id", id, "error", err)
		return nil, false, fmt.Errorf("failed to get cached offering: %w", err)
	}

	var o offering.Offering
	if err := json.Unmarshal(val, &o); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached offering: %w", err)
	}
	return &o, true, nil
}

// Set stores an offering with the cache TTL
func (c *OfferingCache) Set(ctx context.Context, o *offering.Offering) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal offering: %w", err)
	}

	if err := c.client.Set(ctx, offeringKey(o.ID), data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "offering_id", o.ID, "error", err)
		return fmt.Errorf("failed to set cached offering: %w", err)
	}
	return nil
}

// GetList retrieves a cached catalog listing
func (c *OfferingCache) GetList(ctx context.Context, key string) ([]*offering.Offering, bool, error) {
	val, err := c.client.Get(ctx, listKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get_list", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to get cached listing: %w", err)
	}

	var list []*offering.Offering
	if err := json.Unmarshal(val, &list); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached listing: %w", err)
	}
	return list, true, nil
}

// SetList stores a catalog listing
func (c *OfferingCache) SetList(ctx context.Context, key string, list []*offering.Offering) error {
	if list == nil {
		list = []*offering.Offering{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	if err := c.client.Set(ctx, listKey(key), data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set_list", "key", key, "error", err)
		return fmt.Errorf("failed to set cached listing: %w", err)
	}
	return nil
}

// Invalidate drops the offering and every cached listing
func (c *OfferingCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, offeringKey(id))

	iter := c.client.Scan(ctx, 0, ListKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Error("cache error", "operation", "invalidate", "offering_id", id, "error", err)
		return fmt.Errorf("failed to scan listings: %w", err)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("cache error", "operation", "invalidate", "offering_id", id, "error", err)
		return fmt.Errorf("failed to invalidate offering: %w", err)
	}
	return nil
}
