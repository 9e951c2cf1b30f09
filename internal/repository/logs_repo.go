package repository

import (
	"context"
	"time"

	"chai-api/internal/domain"
)

// LogFilters 日志查询过滤器
type LogFilters struct {
	Category string     // 可选
	Start    time.Time  // 包含
	End      *time.Time // 可选，不包含
	Limit    int        // 可选，<=0 不限
}

// LogsRepository 审计日志，只追加
type LogsRepository interface {
	CreateLog(ctx context.Context, entry *domain.LogEntry) (int64, error)
	ListLogs(ctx context.Context, homeID int64, filters LogFilters) ([]*domain.LogEntry, error)
}
