package cache

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to the response cache. The cache is optional: an empty
// addr returns nil and every cached read falls through to Postgres.
func InitRedis(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")
	return client
}
