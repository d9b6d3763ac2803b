package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sentinel-toxicity/internal/toxicity"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sentinel:verdict:"

var _ toxicity.VerdictCache = (*VerdictCache)(nil)

type Options struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultOptions() Options {
	return Options{
		Address: "localhost:6379",
		TTL:     time.Hour,
	}
}

// VerdictCache keeps moderation model answers in redis so repeated texts skip
// the classify call.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewVerdictCache(options Options) *VerdictCache {
	client := redis.NewClient(&redis.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       options.DB,
	})
	return NewVerdictCacheWithClient(client, options.TTL)
}

func NewVerdictCacheWithClient(client *redis.Client, ttl time.Duration) *VerdictCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &VerdictCache{client: client, ttl: ttl}
}

func (c *VerdictCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type entry struct {
	Labels []string `json:"labels"`
	Text   string   `json:"text"`
}

func (c *VerdictCache) Get(ctx context.Context, key string) (toxicity.ModelVerdict, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return toxicity.ModelVerdict{}, false, nil
	}
	if err != nil {
		return toxicity.ModelVerdict{}, false, err
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return toxicity.ModelVerdict{}, false, err
	}
	return toxicity.ModelVerdict{Labels: e.Labels, Text: e.Text}, true, nil
}

func (c *VerdictCache) Set(ctx context.Context, key string, verdict toxicity.ModelVerdict) error {
	data, err := json.Marshal(entry{Labels: verdict.Labels, Text: verdict.Text})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

func (c *VerdictCache) Close() error {
	return c.client.Close()
}
