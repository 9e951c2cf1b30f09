package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chai-api/internal/domain"
)

// PostgresSetpointsRepository 覆盖记录 Repository 实现
type PostgresSetpointsRepository struct {
	db DBTX
}

// NewPostgresSetpointsRepository 创建覆盖记录 Repository
func NewPostgresSetpointsRepository(db DBTX) *PostgresSetpointsRepository {
	return &PostgresSetpointsRepository{db: db}
}

var _ SetpointsRepository = (*PostgresSetpointsRepository)(nil)

// GetActiveSetpoint 最新的未过期覆盖
func (r *PostgresSetpointsRepository) GetActiveSetpoint(ctx context.Context, homeID int64, now time.Time) (*domain.SetpointChange, error) {
	query := `
		SELECT id, homeid, changedat, expiresat, COALESCE(duration, 0), mode, temperature, price, hidden
		FROM setpointchange
		WHERE homeid = $1 AND expiresat > $2
		ORDER BY id DESC
		LIMIT 1
	`
	var s domain.SetpointChange
	var temperature, price sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, homeID, now).Scan(
		&s.ID,
		&s.HomeID,
		&s.ChangedAt,
		&s.ExpiresAt,
		&s.Duration,
		&s.Mode,
		&temperature,
		&price,
		&s.Hidden,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active setpoint: %w", err)
	}
	s.Temperature = nullFloat(temperature)
	s.Price = nullFloat(price)
	return &s, nil
}

// CreateSetpoint 插入覆盖记录
func (r *PostgresSetpointsRepository) CreateSetpoint(ctx context.Context, s *domain.SetpointChange) (int64, error) {
	query := `
		INSERT INTO setpointchange (homeid, changedat, expiresat, duration, mode, temperature, price, hidden)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		s.HomeID, s.ChangedAt, s.ExpiresAt, s.Duration, s.Mode,
		floatArg(s.Temperature), floatArg(s.Price), s.Hidden,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create setpoint change: %w", err)
	}
	s.ID = id
	return id, nil
}
