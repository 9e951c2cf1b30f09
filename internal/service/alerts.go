package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"chai-api/internal/store"
)

// Alert kinds
const (
	AlertDevicePushFailed = "device_push_failed"
	AlertResolveFailed    = "resolve_failed"
	AlertInternalError    = "internal_error"
	AlertPriceSource      = "price_source_unavailable"
)

// Alert 运维告警
type Alert struct {
	Kind    string         `json:"kind"`
	Label   string         `json:"label,omitempty"`
	Message string         `json:"message"`
	Time    time.Time      `json:"time"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Alerter 告警投递（尽力而为，失败只记录日志）
type Alerter interface {
	Alert(ctx context.Context, a Alert) error
}

// StreamAlerter 发布到 Redis Stream，由告警服务消费
type StreamAlerter struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

func NewStreamAlerter(client *redis.Client, stream string, logger *zap.Logger) *StreamAlerter {
	return &StreamAlerter{client: client, stream: stream, logger: logger}
}

func (a *StreamAlerter) Alert(ctx context.Context, alert Alert) error {
	id, err := store.PublishJSONToStream(ctx, a.client, a.stream, alert)
	if err != nil {
		return err
	}
	a.logger.Debug("Alert published", zap.String("stream", a.stream), zap.String("id", id), zap.String("kind", alert.Kind))
	return nil
}

// LogAlerter Redis 不可用时的兜底
type LogAlerter struct {
	logger *zap.Logger
}

func NewLogAlerter(logger *zap.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) Alert(_ context.Context, alert Alert) error {
	a.logger.Warn("Alert",
		zap.String("kind", alert.Kind),
		zap.String("label", alert.Label),
		zap.String("message", alert.Message),
		zap.Any("fields", alert.Fields),
	)
	return nil
}

// RaiseAlert detached from the request context so a cancelled request still alerts
func RaiseAlert(ctx context.Context, alerter Alerter, metrics *Metrics, logger *zap.Logger, alert Alert) {
	if alert.Time.IsZero() {
		alert.Time = time.Now()
	}
	metrics.AlertRaised(alert.Kind)
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := alerter.Alert(actx, alert); err != nil {
		logger.Warn("Failed to deliver alert", zap.String("kind", alert.Kind), zap.Error(err))
	}
}
