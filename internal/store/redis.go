package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// healthTimeout bounds a readiness ping so /healthz answers even when a
// backend hangs.
const healthTimeout = time.Second

// Redis holds the client behind the wheel's history queue.
type Redis struct {
	Client *redis.Client
	Addr   string
}

// NewRedis builds a client for addr. Nothing is dialled until first use, so
// an unreachable server only shows up in Healthy or on the queue.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})
	return &Redis{Client: client, Addr: addr}
}

// Healthy pings the server, giving up after healthTimeout.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
