package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound 查询的行不存在
var ErrNotFound = errors.New("not found")

// DBTX 同时被 *sql.DB 与 *sql.Tx 满足，Repository 不关心是否处于事务中
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories 一组绑定到同一连接（或同一事务）的 Repository
type Repositories struct {
	Homes     HomesRepository
	Setpoints SetpointsRepository
	Schedules SchedulesRepository
	Profiles  ProfilesRepository
	Logs      LogsRepository
	Readings  ReadingsRepository
}

// Store 存储入口。InTx 在单个事务（快照）中执行 fn，fn 返回错误或 ctx 取消时回滚
type Store interface {
	Repos() Repositories
	InTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}
