package service

import (
	"context"

	"go.uber.org/zap"

	"chai-api/internal/domain"
)

// DeviceCommand 下发给阀门的指令；on/off 时不带温度（全开/全关）
type DeviceCommand struct {
	RelayID     int64              `json:"relay_id"`
	Mode        domain.HeatingMode `json:"mode"`
	Temperature *float64           `json:"temperature,omitempty"`
	Minutes     int                `json:"minutes"`
}

// NewDeviceCommand command carrying the resolved status to the relay
func NewDeviceCommand(relayID int64, status domain.HeatingStatus, minutes int) DeviceCommand {
	cmd := DeviceCommand{RelayID: relayID, Mode: status.Mode, Minutes: minutes}
	if !status.Manual() {
		t := status.Temperature
		cmd.Temperature = &t
	}
	return cmd
}

// DeviceController 阀门控制（fire-and-forget，返回成功或失败）
type DeviceController interface {
	SetHeating(ctx context.Context, cmd DeviceCommand) error
}

// LogDeviceController 未接入设备时只记录指令
type LogDeviceController struct {
	logger *zap.Logger
}

func NewLogDeviceController(logger *zap.Logger) *LogDeviceController {
	return &LogDeviceController{logger: logger}
}

func (c *LogDeviceController) SetHeating(_ context.Context, cmd DeviceCommand) error {
	fields := []zap.Field{
		zap.Int64("relay_id", cmd.RelayID),
		zap.String("mode", string(cmd.Mode)),
		zap.Int("minutes", cmd.Minutes),
	}
	if cmd.Temperature != nil {
		fields = append(fields, zap.Float64("temperature", *cmd.Temperature))
	}
	c.logger.Info("Simulating valve command", fields...)
	return nil
}
