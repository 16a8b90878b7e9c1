package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"ChipSentinel/internal/model"
)

const redisKeyPrefix = "chipsentinel:series:"

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis stores encoded series with a server-side expiry.
type Redis struct {
	client *goredis.Client
}

// NewRedis connects to Redis and pings the server.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[INFO] redis cache connected: %s (db=%d)", cfg.Addr, cfg.DB)
	return &Redis{client: client}, nil
}

func (r *Redis) GetOrCompute(ctx context.Context, key Key, ttl time.Duration, produce Producer) (*model.Series, error) {
	rk := redisKeyPrefix + key.String()

	data, err := r.client.Get(ctx, rk).Bytes()
	switch {
	case err == nil:
		s, decErr := decodeSeries(data)
		if decErr == nil {
			return s, nil
		}
		log.Printf("[WARN] redis cache %s: %v", rk, decErr)
	case errors.Is(err, goredis.Nil):
	default:
		log.Printf("[WARN] redis cache get %s: %v", rk, err)
	}

	s, err := produce(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := encodeSeries(s)
	if err != nil {
		log.Printf("[WARN] redis cache %s: %v", rk, err)
		return s, nil
	}
	if err := r.client.Set(ctx, rk, payload, ttl).Err(); err != nil {
		log.Printf("[WARN] redis cache set %s: %v", rk, err)
	}
	return s, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Close() error {
	log.Println("[INFO] closing redis cache")
	return r.client.Close()
}
