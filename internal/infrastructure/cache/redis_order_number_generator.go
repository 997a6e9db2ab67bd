package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/persistence/tenant"
)

const (
	defaultSequencePrefix = "storefront:order-seq:"
	// Counters outlive their day so late retries still see the last value
	defaultSequenceTTL = 48 * time.Hour
)

// RedisOrderNumberGenerator issues ORD-YYYYMMDD-NNNNN numbers from an INCR
// counter keyed by tenant and UTC day. INCR is atomic, so instances sharing
// the Redis never hand out the same sequence.
type RedisOrderNumberGenerator struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// RedisSequenceOption configures a RedisOrderNumberGenerator
type RedisSequenceOption func(*RedisOrderNumberGenerator)

// WithKeyPrefix overrides the counter key prefix
func WithKeyPrefix(prefix string) RedisSequenceOption {
	return func(g *RedisOrderNumberGenerator) {
		if prefix != "" {
			g.keyPrefix = prefix
		}
	}
}

// WithSequenceTTL overrides how long a day's counter is kept
func WithSequenceTTL(ttl time.Duration) RedisSequenceOption {
	return func(g *RedisOrderNumberGenerator) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// NewRedisOrderNumberGenerator creates a generator over client
func NewRedisOrderNumberGenerator(client redis.UniversalClient, opts ...RedisSequenceOption) *RedisOrderNumberGenerator {
	g := &RedisOrderNumberGenerator{
		client:    client,
		keyPrefix: defaultSequencePrefix,
		ttl:       defaultSequenceTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns the next order number for tenantID on the UTC day of at.
// tenantID must be the ambient tenant of ctx.
func (g *RedisOrderNumberGenerator) Next(ctx context.Context, tenantID uuid.UUID, at time.Time) (string, error) {
	if err := tenant.Verify(ctx, tenantID); err != nil {
		return "", err
	}

	key := g.sequenceKey(tenantID, at)
	var incr *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, g.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}

	return order.FormatOrderNumber(at, incr.Val()), nil
}

func (g *RedisOrderNumberGenerator) sequenceKey(tenantID uuid.UUID, at time.Time) string {
	return g.keyPrefix + tenantID.String() + ":" + at.UTC().Format("20060102")
}

var _ order.OrderNumberGenerator = (*RedisOrderNumberGenerator)(nil)
