package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"chai-api/internal/domain"
)

// PostgresSchedulesRepository 日程 Repository 实现
type PostgresSchedulesRepository struct {
	db DBTX
}

// NewPostgresSchedulesRepository 创建日程 Repository
func NewPostgresSchedulesRepository(db DBTX) *PostgresSchedulesRepository {
	return &PostgresSchedulesRepository{db: db}
}

var _ SchedulesRepository = (*PostgresSchedulesRepository)(nil)

var scheduleColumns = []string{"id", "homeid", "revision", "day", "schedule"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var s domain.Schedule
	var day int
	var raw []byte
	if err := row.Scan(&s.ID, &s.HomeID, &s.Revision, &day, &raw); err != nil {
		return nil, err
	}
	s.Day = domain.Day(day)
	entries, err := domain.ParseScheduleEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("schedule %d has an invalid body: %w", s.ID, err)
	}
	s.Entries = entries
	return &s, nil
}

// GetCurrentSchedule 某天的当前日程
func (r *PostgresSchedulesRepository) GetCurrentSchedule(ctx context.Context, homeID int64, day domain.Day) (*domain.Schedule, error) {
	query := scheduleLatest.Query(scheduleColumns, "t.homeid = $1 AND t.day = $2") + " LIMIT 1"
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, homeID, int(day)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

// ListCurrentSchedules mask 选中的天的当前日程
func (r *PostgresSchedulesRepository) ListCurrentSchedules(ctx context.Context, homeID int64, mask domain.Daymask) ([]*domain.Schedule, error) {
	query := scheduleLatest.Query(scheduleColumns, "t.homeid = $1 AND (t.day & $2) <> 0") + " ORDER BY t.day"
	rows, err := r.db.QueryContext(ctx, query, homeID, int(mask))
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var out []*domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}
	return out, nil
}

// CreateSchedules 插入新版本
func (r *PostgresSchedulesRepository) CreateSchedules(ctx context.Context, schedules []*domain.Schedule) error {
	query := `
		INSERT INTO schedule (homeid, revision, day, schedule)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING id
	`
	for _, s := range schedules {
		body, err := json.Marshal(s.Entries)
		if err != nil {
			return fmt.Errorf("failed to encode schedule: %w", err)
		}
		if err := r.db.QueryRowContext(ctx, query, s.HomeID, s.Revision, int(s.Day), string(body)).Scan(&s.ID); err != nil {
			return fmt.Errorf("failed to create schedule for %s: %w", s.Day, err)
		}
	}
	return nil
}
