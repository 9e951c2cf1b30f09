package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chai-api/internal/domain"
	"chai-api/internal/repository"
)

// HeatingService 加热模式、阀门状态与读数历史
type HeatingService struct {
	store    repository.Store
	resolver *HeatingResolver
	prices   PriceSource
	devices  DeviceController
	alerter  Alerter
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewHeatingService 创建加热服务
func NewHeatingService(
	store repository.Store,
	resolver *HeatingResolver,
	prices PriceSource,
	devices DeviceController,
	alerter Alerter,
	metrics *Metrics,
	logger *zap.Logger,
) *HeatingService {
	return &HeatingService{
		store:    store,
		resolver: resolver,
		prices:   prices,
		devices:  devices,
		alerter:  alerter,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source (tests)
func (s *HeatingService) SetClock(now func() time.Time) {
	s.now = now
}

// HomeRequest 只需要定位家庭的请求
type HomeRequest struct {
	Label string
	User  string // home token，匿名为 "anonymous"
}

// HeatingModeResponse GET /heating/mode 响应
type HeatingModeResponse struct {
	Temperature       float64    `json:"temperature"`
	Mode              string     `json:"mode"`
	ValveOpen         bool       `json:"valve_open"`
	TargetTemperature *float64   `json:"target_temperature,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// GetHeatingMode 阀门温度、开合状态与推导出的加热模式
func (s *HeatingService) GetHeatingMode(ctx context.Context, req HomeRequest) (*HeatingModeResponse, error) {
	now := s.now()
	var resp *HeatingModeResponse
	err := s.store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
		if err != nil {
			return err
		}

		valve, err := latestReading(ctx, r.Readings, home.RelayID, domain.ReadingValvePercentage, ErrMissingValveStatus)
		if err != nil {
			return err
		}
		temperature, err := latestReading(ctx, r.Readings, home.RelayID, domain.ReadingValveTemperature, ErrMissingTemperature)
		if err != nil {
			return err
		}

		status, err := s.resolver.Resolve(ctx, r, home, now)
		if err != nil {
			return err
		}

		resp = &HeatingModeResponse{
			Temperature: temperature.Value,
			Mode:        string(status.Mode),
			ValveOpen:   valve.Value > 0,
			ExpiresAt:   status.ExpiresAt,
		}
		if !status.Manual() {
			target := status.Temperature
			resp.TargetTemperature = &target
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SetHeatingModeRequest PUT /heating/mode
type SetHeatingModeRequest struct {
	Label   string
	User    string
	Mode    string
	Target  *float64
	Timeout *int // minutes
	Hidden  bool
}

// SetHeatingModeResponse 写入后推导出的状态
type SetHeatingModeResponse struct {
	Mode              string     `json:"mode"`
	TargetTemperature *float64   `json:"target_temperature,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	DevicePushed      bool       `json:"device_pushed"`
}

func validateSetHeatingMode(req SetHeatingModeRequest) (domain.HeatingMode, int, error) {
	mode, err := domain.ParseHeatingMode(req.Mode)
	if err != nil {
		return "", 0, invalid("mode", "unknown mode %q, expected one of auto, on or off", req.Mode)
	}
	if mode == domain.ModeOverride {
		return "", 0, invalid("mode", "do not use 'override' to change mode, use 'auto' with a target instead")
	}
	if mode == domain.ModeAuto && req.Target != nil {
		if *req.Target < domain.MinTargetTemperature || *req.Target > domain.MaxTargetTemperature {
			return "", 0, invalid("target", "target temperature expected between %g and %g",
				domain.MinTargetTemperature, domain.MaxTargetTemperature)
		}
	}
	duration := domain.DefaultTimeout
	if req.Timeout != nil {
		if *req.Timeout < domain.MinTimeoutMinutes || *req.Timeout > domain.MaxTimeoutMinutes {
			return "", 0, invalid("timeout", "timeout expected between %d and %d (inclusive) minutes",
				domain.MinTimeoutMinutes, domain.MaxTimeoutMinutes)
		}
		duration = *req.Timeout
	}
	return mode, duration, nil
}

// SetHeatingMode 记录一次手动覆盖，然后把推导出的状态下发到阀门。
// 下发失败不回滚覆盖记录，只记录日志并告警。
func (s *HeatingService) SetHeatingMode(ctx context.Context, req SetHeatingModeRequest) (*SetHeatingModeResponse, error) {
	mode, duration, err := validateSetHeatingMode(req)
	if err != nil {
		return nil, err
	}
	modeID, _ := mode.ID()

	home, err := lookupHome(ctx, s.store.Repos().Homes, req.Label, req.User)
	if err != nil {
		return nil, err
	}

	changedAt := s.now()
	price, err := PriceAt(ctx, s.prices, changedAt)
	if err != nil {
		return nil, err
	}

	setpoint := &domain.SetpointChange{
		HomeID:    home.ID,
		ChangedAt: changedAt,
		ExpiresAt: changedAt.Add(time.Duration(duration) * time.Minute),
		Duration:  duration,
		Mode:      modeID,
		Price:     &price,
		Hidden:    req.Hidden,
	}
	if mode == domain.ModeAuto {
		setpoint.Temperature = req.Target
	}

	err = s.store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if _, err := r.Setpoints.CreateSetpoint(ctx, setpoint); err != nil {
			return err
		}
		if req.Hidden {
			return nil
		}
		params, err := json.Marshal([]any{string(mode), setpoint.Temperature, duration})
		if err != nil {
			return err
		}
		_, err = r.Logs.CreateLog(ctx, &domain.LogEntry{
			HomeID:     home.ID,
			Timestamp:  changedAt,
			Category:   domain.LogSetpointChange,
			Parameters: params,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record setpoint change: %w", err)
	}

	s.logger.Info("Setpoint change recorded",
		zap.String("label", home.Label),
		zap.Int64("setpoint_id", setpoint.ID),
		zap.String("mode", string(mode)),
		zap.Int("duration", duration),
	)

	var status domain.HeatingStatus
	err = s.store.InTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		status, err = s.resolver.Resolve(ctx, r, home, changedAt)
		return err
	})
	if err != nil {
		// the override stays recorded; the valve simply is not told about it
		RaiseAlert(ctx, s.alerter, s.metrics, s.logger, Alert{
			Kind:    AlertResolveFailed,
			Label:   home.Label,
			Message: err.Error(),
			Fields:  map[string]any{"setpoint_id": setpoint.ID},
		})
		return nil, err
	}

	resp := &SetHeatingModeResponse{Mode: string(status.Mode), ExpiresAt: status.ExpiresAt}
	if !status.Manual() {
		target := status.Temperature
		resp.TargetTemperature = &target
	}
	resp.DevicePushed = s.pushToDevice(ctx, home, status, duration)
	return resp, nil
}

func (s *HeatingService) pushToDevice(ctx context.Context, home *domain.Home, status domain.HeatingStatus, minutes int) bool {
	relay, err := s.store.Repos().Homes.GetRelay(ctx, home.RelayID)
	if err == nil {
		err = s.devices.SetHeating(ctx, NewDeviceCommand(relay.ID, status, minutes))
	}
	if err != nil {
		s.metrics.DevicePush(false)
		s.logger.Error("Failed to push heating status to device",
			zap.String("label", home.Label),
			zap.Int64("relay_id", home.RelayID),
			zap.Error(err),
		)
		RaiseAlert(ctx, s.alerter, s.metrics, s.logger, Alert{
			Kind:    AlertDevicePushFailed,
			Label:   home.Label,
			Message: err.Error(),
			Fields:  map[string]any{"relay_id": home.RelayID, "mode": string(status.Mode)},
		})
		return false
	}
	s.metrics.DevicePush(true)
	return true
}

// ValveResponse GET /heating/valve
type ValveResponse struct {
	Open bool `json:"open"`
}

// GetValve 最新阀门开度 > 0 即为打开
func (s *HeatingService) GetValve(ctx context.Context, req HomeRequest) (*ValveResponse, error) {
	r := s.store.Repos()
	home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
	if err != nil {
		return nil, err
	}
	reading, err := latestReading(ctx, r.Readings, home.RelayID, domain.ReadingValvePercentage, ErrMissingValveStatus)
	if err != nil {
		return nil, err
	}
	return &ValveResponse{Open: reading.Value > 0}, nil
}

func latestReading(ctx context.Context, readings repository.ReadingsRepository, relayID int64, kind domain.ReadingKind, missing error) (*domain.Reading, error) {
	reading, err := readings.GetLatestReading(ctx, relayID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, missing
		}
		return nil, fmt.Errorf("failed to load reading: %w", err)
	}
	return reading, nil
}

// History sources
const (
	HistoryTemperature = "temperature"
	HistoryValveStatus = "valve_status"
)

// historyWindow default look-back when no start is given
const historyWindow = 7 * 24 * time.Hour

// HistoryRequest GET /heating/history
type HistoryRequest struct {
	Label  string
	User   string
	Source string
	Start  *time.Time
	End    *time.Time
}

// HistoryPoint 单条读数
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// defaultStart one week before end, or before now when end is open
func defaultStart(start, end *time.Time, now time.Time) time.Time {
	if start != nil {
		return *start
	}
	if end != nil {
		return end.Add(-historyWindow)
	}
	return now.Add(-historyWindow)
}

// GetHistory 阀门温度或开度的历史读数
func (s *HeatingService) GetHistory(ctx context.Context, req HistoryRequest) ([]HistoryPoint, error) {
	var kind domain.ReadingKind
	switch req.Source {
	case HistoryTemperature:
		kind = domain.ReadingValveTemperature
	case HistoryValveStatus:
		kind = domain.ReadingValvePercentage
	default:
		return nil, invalid("source", "source expected to be one of %s or %s", HistoryTemperature, HistoryValveStatus)
	}

	r := s.store.Repos()
	home, err := lookupHome(ctx, r.Homes, req.Label, req.User)
	if err != nil {
		return nil, err
	}

	start := defaultStart(req.Start, req.End, s.now())
	readings, err := r.Readings.ListReadings(ctx, home.RelayID, kind, start, req.End)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryPoint, 0, len(readings))
	for _, rd := range readings {
		out = append(out, HistoryPoint{Timestamp: rd.Start, Value: rd.Value})
	}
	return out, nil
}
