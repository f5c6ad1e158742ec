package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// pageCache keeps rendered search pages in redis for datasets that ask for
// it.  a nil client disables caching.
type pageCache struct {
	client *redis.Client
	prefix string
	logger *zap.SugaredLogger
}

func newPageCache(cfg portalConfigRedis, logger *zap.SugaredLogger) (*pageCache, error) {
	c := pageCache{prefix: cfg.KeyPrefix, logger: logger}

	if cfg.URL == "" {
		logger.Infof("[CACHE] page cache disabled (no redis url)")
		return &c, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c.client = client

	return &c, nil
}

func newPageCacheWithClient(client *redis.Client, prefix string, logger *zap.SugaredLogger) *pageCache {
	return &pageCache{client: client, prefix: prefix, logger: logger}
}

func (c *pageCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *pageCache) key(slug, lang, format string, query url.Values) string {
	if c.enabled() == false {
		return ""
	}

	sum := sha1.Sum([]byte(query.Encode()))
	return fmt.Sprintf("%s%s:%s:%s:%s", c.prefix, slug, lang, format, hex.EncodeToString(sum[:]))
}

// get returns a cached page; errors are logged and treated as misses
func (c *pageCache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}

	if err != nil {
		c.logger.Warnf("[CACHE] page cache get %s: %s", key, err.Error())
		return nil, false
	}

	return data, true
}

func (c *pageCache) set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warnf("[CACHE] page cache set %s: %s", key, err.Error())
	}
}

// fetch serves a page from the cache, rendering and storing it on a miss.
// render returning an error (or a non-200 status) is never cached.
func (c *pageCache) fetch(ctx context.Context, slug, key string, ttl time.Duration, render func() (int, []byte, error)) (int, []byte, error) {
	if c.enabled() == false || ttl <= 0 {
		return render()
	}

	if data, ok := c.get(ctx, key); ok == true {
		pageCacheTotal.WithLabelValues(slug, "hit").Inc()
		return http.StatusOK, data, nil
	}

	pageCacheTotal.WithLabelValues(slug, "miss").Inc()

	status, data, err := render()
	if err != nil {
		return status, data, err
	}

	if status == http.StatusOK {
		c.set(ctx, key, data, ttl)
	}

	return status, data, nil
}

func (c *pageCache) close() error {
	if c.enabled() == false {
		return nil
	}

	err := c.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}

	return err
}
