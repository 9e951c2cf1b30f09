package repository

import (
	"context"

	"chai-api/internal/domain"
)

// ProfileObservation profile 行及产生它的（未隐藏）setpoint
type ProfileObservation struct {
	Profile  *domain.Profile
	Setpoint *domain.SetpointChange
}

// ProfilesRepository 价格-温度模型，按 id 递增版本化
type ProfilesRepository interface {
	// GetGeneration 最近一次重置标记；从未重置时 StartID 为 0
	GetGeneration(ctx context.Context, homeID int64, profileID int) (domain.ProfileGeneration, error)
	// GetCurrentProfile 当前代中 id 最大的行
	GetCurrentProfile(ctx context.Context, homeID int64, gen domain.ProfileGeneration) (*domain.Profile, error)
	// ListCurrentProfiles 每个 profile_id 的最新行，按 profile_id 排序
	ListCurrentProfiles(ctx context.Context, homeID int64) ([]*domain.Profile, error)
	// ListObservations 当前代中关联未隐藏 setpoint 的行，id 倒序；limit<=0 表示不限
	ListObservations(ctx context.Context, homeID int64, gen domain.ProfileGeneration, skip, limit int) ([]ProfileObservation, error)
	CreateProfile(ctx context.Context, p *domain.Profile) (int64, error)
}
