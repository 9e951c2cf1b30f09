package repository

import (
	"context"
	"time"

	"chai-api/internal/domain"
)

// SetpointsRepository 手动覆盖记录，只插入
type SetpointsRepository interface {
	// GetActiveSetpoint id 最大且 expires_at > now 的记录，没有时返回 ErrNotFound
	GetActiveSetpoint(ctx context.Context, homeID int64, now time.Time) (*domain.SetpointChange, error)
	CreateSetpoint(ctx context.Context, s *domain.SetpointChange) (int64, error)
}
