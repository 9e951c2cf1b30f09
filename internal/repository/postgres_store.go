package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore 基于 lib/pq 的 Store
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 创建 PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func postgresRepos(q DBTX) Repositories {
	return Repositories{
		Homes:     NewPostgresHomesRepository(q),
		Setpoints: NewPostgresSetpointsRepository(q),
		Schedules: NewPostgresSchedulesRepository(q),
		Profiles:  NewPostgresProfilesRepository(q),
		Logs:      NewPostgresLogsRepository(q),
		Readings:  NewPostgresReadingsRepository(q),
	}
}

// Repos 非事务访问
func (s *PostgresStore) Repos() Repositories {
	return postgresRepos(s.db)
}

// InTx REPEATABLE READ 事务：同一请求内的多次读取看到同一快照
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, postgresRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
