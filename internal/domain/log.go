package domain

import (
	"encoding/json"
	"time"
)

// Log categories
const (
	LogSetpointChange = "SETPOINT_CHANGE"
	LogScheduleChange = "SCHEDULE_CHANGE"
	LogProfileReset   = "PROFILE_RESET"
)

// LogEntry 审计日志（log 表），只追加
type LogEntry struct {
	ID         int64           `db:"id"`
	HomeID     int64           `db:"homeid"`
	Timestamp  time.Time       `db:"timestamp"`
	Category   string          `db:"category"`
	Parameters json.RawMessage `db:"parameters"`
}
