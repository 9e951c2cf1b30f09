package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"chai-api/internal/config"
	"chai-api/internal/domain"
)

// PriceSource 电价来源：返回与 [start, end] 重叠的时段，按开始时间排序。
// 时段本身是半开区间 [Start, End)，所以结束于 start 的时段也可能被返回。
// end 为空表示不限，limit<=0 表示不限
type PriceSource interface {
	Range(ctx context.Context, start time.Time, end *time.Time, limit int) ([]domain.PriceSlot, error)
}

// PriceAt price of the slot covering t. No limit is passed: at a slot boundary the
// slot ending at t may come first and the covering one second.
func PriceAt(ctx context.Context, src PriceSource, t time.Time) (float64, error) {
	slots, err := src.Range(ctx, t, &t, 0)
	if err != nil {
		return 0, priceSourceError(ctx, err)
	}
	for _, s := range slots {
		if s.Covers(t) {
			return s.Price, nil
		}
	}
	return 0, ErrMissingPrice
}

// priceSourceError keeps cancellation distinguishable from an upstream outage
func priceSourceError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("price lookup aborted: %w", ctxErr)
	}
	return fmt.Errorf("%w: %w", ErrPriceSourceUnavailable, err)
}

// PriceClient 外部电价服务客户端
type PriceClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewPriceClient 创建电价客户端（5xx 与网络错误会重试）
func NewPriceClient(cfg config.PriceConfig, logger *zap.Logger) *PriceClient {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= 500)
		}).
		SetHeader("Accept", "application/json")

	return &PriceClient{httpClient: client, logger: logger}
}

var _ PriceSource = (*PriceClient)(nil)

// Range GET /prices?start=&end=&limit=（unix 秒）
func (c *PriceClient) Range(ctx context.Context, start time.Time, end *time.Time, limit int) ([]domain.PriceSlot, error) {
	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("start", strconv.FormatInt(start.Unix(), 10))
	if end != nil {
		req.SetQueryParam("end", strconv.FormatInt(end.Unix(), 10))
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	var slots []domain.PriceSlot
	resp, err := req.SetResult(&slots).Get("/prices")
	if err != nil {
		c.logger.Error("Price API call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call price API: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Price API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("price API error (status: %d)", resp.StatusCode())
	}
	return slots, nil
}

// FixedPriceSource 固定电价，按半小时切分（未配置电价服务时使用）
type FixedPriceSource struct {
	Rate float64
}

const priceSlotLength = 30 * time.Minute

// slots generated when no end is given
const fixedOpenRangeSlots = 48

var _ PriceSource = FixedPriceSource{}

func (f FixedPriceSource) Range(_ context.Context, start time.Time, end *time.Time, limit int) ([]domain.PriceSlot, error) {
	var out []domain.PriceSlot
	for s := start.Truncate(priceSlotLength); ; s = s.Add(priceSlotLength) {
		if end != nil && s.After(*end) {
			break
		}
		if end == nil && len(out) >= fixedOpenRangeSlots {
			break
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, domain.PriceSlot{Start: s, End: s.Add(priceSlotLength), Price: f.Rate})
	}
	return out, nil
}
