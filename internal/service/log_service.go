package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"chai-api/internal/repository"
)

// LogService 审计日志查询
type LogService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewLogService(store repository.Store, logger *zap.Logger) *LogService {
	return &LogService{store: store, logger: logger, now: time.Now}
}

// SetClock replaces the time source (tests)
func (s *LogService) SetClock(now func() time.Time) {
	s.now = now
}

// ListLogsRequest GET /logs
type ListLogsRequest struct {
	Label    string
	User     string
	Category string
	Start    *time.Time
	End      *time.Time
	Limit    *int
}

// LogEntry GET /logs 单项
type LogEntry struct {
	Timestamp  time.Time       `json:"timestamp"`
	Category   string          `json:"category"`
	Parameters json.RawMessage `json:"parameters"`
}

// ListLogs start 默认为 end（或当前时间）之前一周；按时间正序
func (s *LogService) ListLogs(ctx context.Context, req ListLogsRequest) ([]LogEntry, error) {
	filters := repository.LogFilters{
		Category: req.Category,
		Start:    defaultStart(req.Start, req.End, s.now()),
		End:      req.End,
	}
	if req.Limit != nil {
		if *req.Limit < 1 {
			return nil, invalid("limit", "the limit should be 1 or more")
		}
		filters.Limit = *req.Limit
	}

	r := s.store.Repos()
	home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
	if err != nil {
		return nil, err
	}
	entries, err := r.Logs.ListLogs(ctx, home.ID, filters)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntry{Timestamp: e.Timestamp, Category: e.Category, Parameters: e.Parameters})
	}
	return out, nil
}
