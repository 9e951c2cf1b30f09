package repository

import (
	"context"

	"chai-api/internal/domain"
)

// SchedulesRepository 按 (home, day) 版本化的日程
type SchedulesRepository interface {
	GetCurrentSchedule(ctx context.Context, homeID int64, day domain.Day) (*domain.Schedule, error)
	// ListCurrentSchedules 当前版本中被 mask 选中的天，按星期顺序
	ListCurrentSchedules(ctx context.Context, homeID int64, mask domain.Daymask) ([]*domain.Schedule, error)
	// CreateSchedules 每行都作为新版本插入，ID 回填
	CreateSchedules(ctx context.Context, schedules []*domain.Schedule) error
}
