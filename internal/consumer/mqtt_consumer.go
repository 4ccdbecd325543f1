package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/STARTUPinnovator/smartbin/internal/config"
	"github.com/STARTUPinnovator/smartbin/internal/service"

	mqttcommon "github.com/STARTUPinnovator/smartbin/internal/common/mqtt"

	"go.uber.org/zap"
)

// uplinkPayload MQTT 上行报文（bin_id 取自主题，不在载荷里）
type uplinkPayload struct {
	FillLevel int     `json:"fill_percentage"`
	StatusMsg string  `json:"status_msg"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// MQTTConsumer MQTT消息消费者：硬件第二上行通道
// 走与 HTTP /api/v1/update 完全相同的接入管道
type MQTTConsumer struct {
	config     *config.Config
	mqttClient *mqttcommon.Client
	ingest     *service.Ingestor
	logger     *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	ingest *service.Ingestor,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		ingest:     ingest,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.MQTT.Topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to uplink topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.config.MQTT.Topic),
	)

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.config.MQTT.Topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage 处理MQTT消息
// 主题格式: bins/{bin_id}/telemetry
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	binID, err := binIDFromTopic(topic)
	if err != nil {
		return err
	}

	var msg uplinkPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Error("Failed to unmarshal MQTT message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	accepted, err := c.ingest.Ingest(context.Background(), service.Report{
		BinID:     binID,
		FillLevel: msg.FillLevel,
		StatusMsg: msg.StatusMsg,
		Lat:       msg.Lat,
		Lon:       msg.Lon,
	})
	if err != nil {
		// 重试由硬件侧 QoS 负责，这里不做内部重试
		return fmt.Errorf("failed to ingest MQTT uplink: %w", err)
	}

	c.logger.Info("MQTT uplink accepted",
		zap.String("bin_id", binID),
		zap.Int64("sequence_id", accepted.SequenceID),
	)
	return nil
}

func binIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "bins" || parts[1] == "" || parts[2] != "telemetry" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[1], nil
}
