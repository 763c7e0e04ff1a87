// Package command hands out kitchen command numbers. All line items added by one
// order update share a number, which correlates them on the kitchen ticket.
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resto-be/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "resto:command"

type Sequence interface {
	Next(ctx context.Context) (string, error)
}

// counter is the part of *redis.Client the sequence needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisSequence numbers commands per business day: 20260310-0001, 20260310-0002...
type RedisSequence struct {
	client counter
	closer func() error
	loc    *time.Location
	now    func() time.Time
}

func NewRedisSequence(addr string, loc *time.Location) *RedisSequence {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisSequence{
		client: client,
		closer: client.Close,
		loc:    orLocal(loc),
		now:    time.Now,
	}
}

func (s *RedisSequence) Next(ctx context.Context) (string, error) {
	day := s.now().In(s.loc).Format("20060102")
	key := fmt.Sprintf("%s:%s", keyPrefix, day)

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		logger.FromCtx(ctx).Warn("command sequence unavailable, using fallback number",
			zap.String("key", key),
			zap.Error(err),
		)
		return fallbackNumber(day), nil
	}

	if n == 1 {
		// keys outlive the business day so late tickets still resolve
		if err := s.client.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
			logger.FromCtx(ctx).Warn("failed to set command key expiry", zap.String("key", key), zap.Error(err))
		}
	}

	return fmt.Sprintf("%s-%04d", day, n), nil
}

func (s *RedisSequence) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// UUIDSequence is used when no Redis is configured.
type UUIDSequence struct {
	loc *time.Location
	now func() time.Time
}

func NewUUIDSequence(loc *time.Location) *UUIDSequence {
	return &UUIDSequence{loc: orLocal(loc), now: time.Now}
}

func (s *UUIDSequence) Next(ctx context.Context) (string, error) {
	return fallbackNumber(s.now().In(s.loc).Format("20060102")), nil
}

func fallbackNumber(day string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", day, strings.ToUpper(id[:8]))
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
