package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chai-api/internal/domain"
)

// PostgresReadingsRepository 读数 Repository 实现
type PostgresReadingsRepository struct {
	db DBTX
}

// NewPostgresReadingsRepository 创建读数 Repository
func NewPostgresReadingsRepository(db DBTX) *PostgresReadingsRepository {
	return &PostgresReadingsRepository{db: db}
}

var _ ReadingsRepository = (*PostgresReadingsRepository)(nil)

// GetLatestReading 某类读数的最新一条
func (r *PostgresReadingsRepository) GetLatestReading(ctx context.Context, relayID int64, kind domain.ReadingKind) (*domain.Reading, error) {
	var rd domain.Reading
	var k int
	err := r.db.QueryRowContext(ctx, `
		SELECT id, roomid, netatmoid, start, "end", reading
		FROM netatmoreading
		WHERE netatmoid = $1 AND roomid = $2
		ORDER BY start DESC
		LIMIT 1
	`, relayID, int(kind)).Scan(&rd.ID, &k, &rd.RelayID, &rd.Start, &rd.End, &rd.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}
	rd.Kind = domain.ReadingKind(k)
	return &rd, nil
}

// ListReadings 时间范围内的读数
func (r *PostgresReadingsRepository) ListReadings(ctx context.Context, relayID int64, kind domain.ReadingKind, start time.Time, end *time.Time) ([]*domain.Reading, error) {
	query := `
		SELECT id, roomid, netatmoid, start, "end", reading
		FROM netatmoreading
		WHERE netatmoid = $1 AND roomid = $2 AND start >= $3`
	args := []any{relayID, int(kind), start}
	if end != nil {
		query += ` AND "end" <= $4`
		args = append(args, *end)
	}
	query += " ORDER BY start"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var out []*domain.Reading
	for rows.Next() {
		var rd domain.Reading
		var k int
		if err := rows.Scan(&rd.ID, &k, &rd.RelayID, &rd.Start, &rd.End, &rd.Value); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		rd.Kind = domain.ReadingKind(k)
		out = append(out, &rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return out, nil
}
