package repository

import (
	"context"
	"fmt"
	"strings"

	"chai-api/internal/domain"
)

// PostgresLogsRepository 审计日志 Repository 实现
type PostgresLogsRepository struct {
	db DBTX
}

// NewPostgresLogsRepository 创建审计日志 Repository
func NewPostgresLogsRepository(db DBTX) *PostgresLogsRepository {
	return &PostgresLogsRepository{db: db}
}

var _ LogsRepository = (*PostgresLogsRepository)(nil)

// CreateLog 追加一条日志
func (r *PostgresLogsRepository) CreateLog(ctx context.Context, entry *domain.LogEntry) (int64, error) {
	if entry.Category == "" {
		return 0, fmt.Errorf("category is required")
	}
	params := string(entry.Parameters)
	if params == "" {
		params = "[]"
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO log (homeid, timestamp, category, parameters)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING id
	`, entry.HomeID, entry.Timestamp, entry.Category, params).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create log: %w", err)
	}
	entry.ID = id
	return id, nil
}

// ListLogs 按时间顺序查询
func (r *PostgresLogsRepository) ListLogs(ctx context.Context, homeID int64, filters LogFilters) ([]*domain.LogEntry, error) {
	where := []string{"homeid = $1", "timestamp >= $2"}
	args := []any{homeID, filters.Start}
	argN := 3

	if filters.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", argN))
		args = append(args, filters.Category)
		argN++
	}
	if filters.End != nil {
		where = append(where, fmt.Sprintf("timestamp < $%d", argN))
		args = append(args, *filters.End)
		argN++
	}

	query := `
		SELECT id, homeid, timestamp, category, parameters
		FROM log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY timestamp, id`
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	var out []*domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		var params []byte
		if err := rows.Scan(&e.ID, &e.HomeID, &e.Timestamp, &e.Category, &params); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		e.Parameters = params
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate logs: %w", err)
	}
	return out, nil
}
