package service

import (
	"context"
	"time"

	"chai-api/internal/domain"
)

// PriceService 电价查询（转发到 PriceSource）
type PriceService struct {
	prices PriceSource
	now    func() time.Time
}

func NewPriceService(prices PriceSource) *PriceService {
	return &PriceService{prices: prices, now: time.Now}
}

// SetClock replaces the time source (tests)
func (s *PriceService) SetClock(now func() time.Time) {
	s.now = now
}

// ListPricesRequest GET /electricity/prices
type ListPricesRequest struct {
	Start *time.Time // 默认为当前时间
	End   *time.Time
	Limit *int
}

// ListPrices 按时间排序的电价时段
func (s *PriceService) ListPrices(ctx context.Context, req ListPricesRequest) ([]domain.PriceSlot, error) {
	start := s.now()
	if req.Start != nil {
		start = *req.Start
	}
	if req.End != nil && !req.End.After(start) {
		return nil, invalid("end", "the end date should not be before the start date")
	}
	limit := 0
	if req.Limit != nil {
		if *req.Limit < 1 {
			return nil, invalid("limit", "the limit should be 1 or more")
		}
		limit = *req.Limit
	}

	slots, err := s.prices.Range(ctx, start, req.End, limit)
	if err != nil {
		return nil, priceSourceError(ctx, err)
	}
	if slots == nil {
		slots = []domain.PriceSlot{}
	}
	return slots, nil
}
