package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsEvent is one allow/deny decision.
type StatsEvent struct {
	Key     string
	Allowed bool
	Route   string
	At      time.Time
}

// StatsRecorder persists decisions. Errors are logged by callers, never
// surfaced to clients.
type StatsRecorder interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// RedisStats keeps cumulative and per-minute allow/deny counters in Redis
// hashes under prefix.
type RedisStats struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisStats(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisStats {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "waitless:ratelimit"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStats{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStats) Record(ctx context.Context, ev StatsEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	pipe.Expire(ctx, bucketKey, s.ttl)
	if ev.Route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", ev.Route+":"+field, 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Totals returns the cumulative allowed and denied counts.
func (s *RedisStats) Totals(ctx context.Context) (allowed, denied int64, err error) {
	vals, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return 0, 0, err
	}
	allowed, _ = strconv.ParseInt(vals["allowed"], 10, 64)
	denied, _ = strconv.ParseInt(vals["denied"], 10, 64)
	return allowed, denied, nil
}
