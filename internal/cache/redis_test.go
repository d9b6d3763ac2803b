package cache

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"sentinel-toxicity/internal/toxicity"
)

func TestVerdictCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("SENTINEL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SENTINEL_TEST_REDIS_ADDR not set")
	}
	c := NewVerdictCache(Options{Address: addr, TTL: time.Minute})
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := toxicity.CacheKey("cache test " + time.Now().String())
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%t err=%v", ok, err)
	}

	want := toxicity.ModelVerdict{Labels: []string{"Aggro"}, Text: "esti un prost"}
	if err := c.Set(ctx, key, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%t err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected verdict: %+v", got)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Address != "localhost:6379" || opts.TTL != time.Hour {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
