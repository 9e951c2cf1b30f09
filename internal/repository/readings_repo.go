package repository

import (
	"context"
	"time"

	"chai-api/internal/domain"
)

// ReadingsRepository 中继设备传感器读数（由采集服务写入，这里只读）
type ReadingsRepository interface {
	GetLatestReading(ctx context.Context, relayID int64, kind domain.ReadingKind) (*domain.Reading, error)
	// ListReadings start <= reading.start，end 非空时 reading.end <= end
	ListReadings(ctx context.Context, relayID int64, kind domain.ReadingKind, start time.Time, end *time.Time) ([]*domain.Reading, error)
}
