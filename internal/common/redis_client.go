package common

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/edigate/internal/logging"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the shared client and pings it once. A failed ping
// is returned together with the client; the pool keeps reconnecting.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	logging.Info("[Redis] Initializing Redis client", "addr", addr)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("[Redis] Connected", "addr", addr)
	return client, nil
}
