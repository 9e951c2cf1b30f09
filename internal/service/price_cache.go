package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chai-api/internal/domain"
	"chai-api/internal/store"
)

const priceCachePrefix = "chai:prices:"

// CachedPriceSource Redis 缓存装饰器，缓存失败不影响查询
type CachedPriceSource struct {
	next    PriceSource
	kv      store.KV
	ttl     time.Duration
	metrics *Metrics
	logger  *zap.Logger
}

// NewCachedPriceSource 创建带缓存的电价来源
func NewCachedPriceSource(next PriceSource, kv store.KV, ttl time.Duration, metrics *Metrics, logger *zap.Logger) *CachedPriceSource {
	return &CachedPriceSource{next: next, kv: kv, ttl: ttl, metrics: metrics, logger: logger}
}

var _ PriceSource = (*CachedPriceSource)(nil)

// slot boundaries fall on whole minutes, so minute precision keeps hits correct
func priceCacheKey(start time.Time, end *time.Time, limit int) string {
	endKey := int64(-1)
	if end != nil {
		endKey = end.Truncate(time.Minute).Unix()
	}
	return fmt.Sprintf("%s%d:%d:%d", priceCachePrefix, start.Truncate(time.Minute).Unix(), endKey, limit)
}

func (c *CachedPriceSource) Range(ctx context.Context, start time.Time, end *time.Time, limit int) ([]domain.PriceSlot, error) {
	key := priceCacheKey(start, end, limit)

	raw, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		var slots []domain.PriceSlot
		if jerr := json.Unmarshal([]byte(raw), &slots); jerr == nil {
			c.metrics.PriceCache("hit")
			return slots, nil
		}
		c.logger.Warn("Discarding undecodable cached prices", zap.String("key", key))
	case errors.Is(err, store.ErrMiss):
	default:
		c.logger.Warn("Price cache unavailable", zap.String("key", key), zap.Error(err))
	}
	c.metrics.PriceCache("miss")

	slots, err := c.next.Range(ctx, start, end, limit)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return slots, nil
	}
	b, err := json.Marshal(slots)
	if err != nil {
		return slots, nil
	}
	if err := c.kv.Set(ctx, key, string(b), c.ttl); err != nil {
		c.logger.Warn("Failed to cache prices", zap.String("key", key), zap.Error(err))
	}
	return slots, nil
}
