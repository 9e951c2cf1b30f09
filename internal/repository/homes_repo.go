package repository

import (
	"context"

	"chai-api/internal/domain"
)

// HomesRepository 家庭与中继设备
type HomesRepository interface {
	// GetCurrentHome 同一 label 下 revision 最新的家庭
	GetCurrentHome(ctx context.Context, label string) (*domain.Home, error)
	GetRelay(ctx context.Context, relayID int64) (*domain.Relay, error)

	CreateRelay(ctx context.Context, refreshToken string) (int64, error)
	// CreateHome 插入新版本（不会修改旧版本）
	CreateHome(ctx context.Context, home *domain.Home) (int64, error)
}
