package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"chai-api/internal/service"
)

// Publisher 由 *Client 实现，测试中可替换
type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

// ValveController 通过 MQTT 把加热指令发给中继设备
type ValveController struct {
	publisher Publisher
	prefix    string
	qos       byte
	logger    *zap.Logger
}

var _ service.DeviceController = (*ValveController)(nil)

func NewValveController(publisher Publisher, topicPrefix string, qos byte, logger *zap.Logger) *ValveController {
	return &ValveController{
		publisher: publisher,
		prefix:    strings.TrimSuffix(topicPrefix, "/"),
		qos:       qos,
		logger:    logger,
	}
}

// SetpointTopic <prefix>/<relay id>/setpoint
func (v *ValveController) SetpointTopic(relayID int64) string {
	return fmt.Sprintf("%s/%d/setpoint", v.prefix, relayID)
}

type setpointMessage struct {
	service.DeviceCommand
	IssuedAt time.Time `json:"issued_at"`
}

// SetHeating 发布指令；不保留（retained=false），旧指令不会在重连后重放
func (v *ValveController) SetHeating(ctx context.Context, cmd service.DeviceCommand) error {
	payload, err := json.Marshal(setpointMessage{DeviceCommand: cmd, IssuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode setpoint: %w", err)
	}
	topic := v.SetpointTopic(cmd.RelayID)
	if err := v.publisher.Publish(ctx, topic, v.qos, false, payload); err != nil {
		return err
	}
	v.logger.Debug("Setpoint published", zap.String("topic", topic), zap.String("mode", string(cmd.Mode)))
	return nil
}
