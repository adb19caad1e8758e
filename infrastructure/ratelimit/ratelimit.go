// Package ratelimit throttles requests per client IP with Redis counters.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"stockmaster/infrastructure/config"
)

// NewRedisClient connects to Redis. An empty address disables rate limiting
// and returns a nil client.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Limiter allows Limit requests per Period for each client and scope.
type Limiter struct {
	Client redis.Cmdable
	Limit  int
	Period time.Duration
	Prefix string
}

func New(client *redis.Client, perMinute int) *Limiter {
	l := &Limiter{Limit: perMinute, Period: time.Minute, Prefix: "stockmaster:rate"}
	if client != nil {
		l.Client = client
	}
	return l
}

// Allow reports whether key may proceed. The counter and its expiry are set in
// one MULTI so a window always ends. Redis failures let the request through.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.Client == nil || l.Limit <= 0 {
		return true
	}
	k := l.Prefix + ":" + key
	var incr *redis.IntCmd
	_, err := l.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.Period)
		return nil
	})
	if err != nil {
		slog.Warn("rate limit check failed", slog.String("key", k), slog.Any("err", err))
		return true
	}
	return incr.Val() <= int64(l.Limit)
}

// Middleware rejects callers over the limit with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.Context(), ClientIP(r)+":"+r.URL.Path) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.Period.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the remote host. chi's RealIP middleware has already
// applied proxy headers when enabled.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
