package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sensor-ingest/internal/config"
	"sensor-ingest/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// MQTTPublisher 语音动作需要的 MQTT 发布能力（未配置 broker 时为 nil）
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// ActionDispatcher 报警动作下发器
// notification → Redis 发布通道；voice → 设备 MQTT 主题；plugin → webhook
type ActionDispatcher struct {
	redisClient *redis.Client
	mqttClient  MQTTPublisher
	httpClient  *resty.Client
	cfg         *config.Config
	logger      *zap.Logger
}

// NewActionDispatcher 创建动作下发器；mqttClient 可为 nil（voice 动作降级为日志）
func NewActionDispatcher(cfg *config.Config, redisClient *redis.Client, mqttClient MQTTPublisher, logger *zap.Logger) *ActionDispatcher {
	httpClient := resty.New().
		SetTimeout(time.Duration(cfg.Dispatch.WebhookTimeout) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")

	return &ActionDispatcher{
		redisClient: redisClient,
		mqttClient:  mqttClient,
		httpClient:  httpClient,
		cfg:         cfg,
		logger:      logger,
	}
}

// alertPayload 下发到各通道的统一载荷
type alertPayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Dispatch 按动作类型下发报警消息；未知类型记录警告后丢弃
func (d *ActionDispatcher) Dispatch(ctx context.Context, actionType, message string, actionConfig json.RawMessage) error {
	switch actionType {
	case models.ActionNotification:
		return d.publishNotification(ctx, message, actionConfig)
	case models.ActionVoice:
		return d.publishVoice(message, actionConfig)
	case models.ActionPlugin:
		return d.callPlugin(ctx, message, actionConfig)
	default:
		d.logger.Warn("Unknown alert action type",
			zap.String("action_type", actionType),
		)
		return nil
	}
}

// publishNotification 发布到 Redis 通知通道（下游订阅者负责推送）
func (d *ActionDispatcher) publishNotification(ctx context.Context, message string, actionConfig json.RawMessage) error {
	channel := d.cfg.Dispatch.NotifyChannel
	var cfg struct {
		Channel string `json:"channel"`
	}
	if len(actionConfig) > 0 {
		if err := json.Unmarshal(actionConfig, &cfg); err == nil && cfg.Channel != "" {
			channel = cfg.Channel
		}
	}

	payload, err := json.Marshal(alertPayload{
		Type:      "sensor_alert",
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	if err := d.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	d.logger.Info("Notification alert published",
		zap.String("channel", channel),
	)
	return nil
}

// publishVoice 发布到设备的语音播报主题
func (d *ActionDispatcher) publishVoice(message string, actionConfig json.RawMessage) error {
	if d.mqttClient == nil {
		d.logger.Warn("MQTT not configured, voice alert dropped")
		return nil
	}

	var cfg struct {
		Topic    string `json:"topic"`
		DeviceID string `json:"deviceId"`
	}
	if len(actionConfig) > 0 {
		if err := json.Unmarshal(actionConfig, &cfg); err != nil {
			return fmt.Errorf("failed to parse voice action config: %w", err)
		}
	}

	topic := cfg.Topic
	if topic == "" {
		topic = d.cfg.Dispatch.VoiceTopicPrefix + cfg.DeviceID
	}

	payload, err := json.Marshal(alertPayload{
		Type:      "sensor_alert",
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal voice payload: %w", err)
	}

	if err := d.mqttClient.Publish(topic, d.cfg.MQTT.QoS, false, payload); err != nil {
		return fmt.Errorf("failed to publish voice alert: %w", err)
	}

	d.logger.Info("Voice alert published",
		zap.String("topic", topic),
	)
	return nil
}

// callPlugin 调用插件 webhook；地址优先取动作配置，回退到全局默认
func (d *ActionDispatcher) callPlugin(ctx context.Context, message string, actionConfig json.RawMessage) error {
	url := d.cfg.Dispatch.WebhookURL
	var cfg struct {
		URL string `json:"url"`
	}
	if len(actionConfig) > 0 {
		if err := json.Unmarshal(actionConfig, &cfg); err == nil && cfg.URL != "" {
			url = cfg.URL
		}
	}
	if url == "" {
		d.logger.Warn("No webhook URL configured, plugin alert dropped")
		return nil
	}

	resp, err := d.httpClient.R().
		SetContext(ctx).
		SetBody(alertPayload{
			Type:      "sensor_alert",
			Message:   message,
			Timestamp: time.Now().Unix(),
		}).
		Post(url)
	if err != nil {
		return fmt.Errorf("failed to call plugin webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("plugin webhook returned status %d", resp.StatusCode())
	}

	d.logger.Info("Plugin webhook called",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}
