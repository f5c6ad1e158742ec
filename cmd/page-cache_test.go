package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestPageCache(t *testing.T) (*pageCache, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)

	cache, err := newPageCache(portalConfigRedis{URL: "redis://" + s.Addr(), KeyPrefix: "test:"}, testLogger())
	if err != nil {
		t.Fatalf("newPageCache failed: %v", err)
	}

	t.Cleanup(func() { cache.close() })

	return cache, s
}

func TestPageCacheDisabled(t *testing.T) {
	cache, err := newPageCache(portalConfigRedis{}, testLogger())
	if err != nil {
		t.Fatalf("newPageCache failed: %v", err)
	}

	if cache.enabled() == true || cache.key("od", "en", "html", url.Values{}) != "" {
		t.Errorf("cache without a url must be disabled")
	}

	calls := 0
	render := func() (int, []byte, error) {
		calls++
		return http.StatusOK, []byte("page"), nil
	}

	cache.fetch(context.Background(), "od", "", time.Minute, render)
	cache.fetch(context.Background(), "od", "", time.Minute, render)

	if calls != 2 {
		t.Errorf("disabled cache must always render, got %d calls", calls)
	}

	if err := cache.close(); err != nil {
		t.Errorf("close on disabled cache: %v", err)
	}
}

func TestPageCacheBadURL(t *testing.T) {
	if _, err := newPageCache(portalConfigRedis{URL: "http://not-redis"}, testLogger()); err == nil {
		t.Errorf("expected invalid url error")
	}
}

func TestPageCacheFetch(t *testing.T) {
	cache, s := setupTestPageCache(t)

	key := cache.key("od", "en", "html", url.Values{"search_text": {"water"}})
	if strings.HasPrefix(key, "test:od:en:html:") == false {
		t.Fatalf("unexpected key %s", key)
	}

	calls := 0
	render := func() (int, []byte, error) {
		calls++
		return http.StatusOK, []byte("<html>water</html>"), nil
	}

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		status, data, err := cache.fetch(ctx, "od", key, time.Minute, render)
		if err != nil || status != http.StatusOK || string(data) != "<html>water</html>" {
			t.Fatalf("fetch %d: %d %q %v", i, status, data, err)
		}
	}

	if calls != 1 {
		t.Errorf("expected a single render, got %d", calls)
	}

	if ttl := s.TTL(key); ttl != time.Minute {
		t.Errorf("expected ttl of a minute, got %s", ttl)
	}

	s.FastForward(2 * time.Minute)

	cache.fetch(ctx, "od", key, time.Minute, render)
	if calls != 2 {
		t.Errorf("expired page should be rendered again")
	}
}

func TestPageCacheSkipsFailures(t *testing.T) {
	cache, s := setupTestPageCache(t)

	key := cache.key("od", "fr", "html", url.Values{})

	_, _, err := cache.fetch(context.Background(), "od", key, time.Minute, func() (int, []byte, error) {
		return http.StatusBadGateway, nil, errors.New("solr down")
	})

	if err == nil {
		t.Fatalf("expected render error to propagate")
	}

	if s.Exists(key) {
		t.Errorf("failed renders must not be cached")
	}

	cache.fetch(context.Background(), "od", key, time.Minute, func() (int, []byte, error) {
		return http.StatusNotFound, []byte("nope"), nil
	})

	if s.Exists(key) {
		t.Errorf("non-200 pages must not be cached")
	}
}

func TestPageCacheZeroTTLBypasses(t *testing.T) {
	cache, s := setupTestPageCache(t)

	key := cache.key("ati", "en", "html", url.Values{})

	cache.fetch(context.Background(), "ati", key, 0, func() (int, []byte, error) {
		return http.StatusOK, []byte("x"), nil
	})

	if s.Exists(key) {
		t.Errorf("datasets without a page cache ttl must not be cached")
	}
}

func TestPageCacheRedisDown(t *testing.T) {
	s := miniredis.RunT(t)

	cache := newPageCacheWithClient(redis.NewClient(&redis.Options{Addr: s.Addr()}), "test:", testLogger())
	key := cache.key("od", "en", "html", url.Values{})

	s.Close()

	status, data, err := cache.fetch(context.Background(), "od", key, time.Minute, func() (int, []byte, error) {
		return http.StatusOK, []byte("fresh"), nil
	})

	if err != nil || status != http.StatusOK || string(data) != "fresh" {
		t.Errorf("redis failures should fall back to rendering: %d %q %v", status, data, err)
	}

	cache.close()
}
