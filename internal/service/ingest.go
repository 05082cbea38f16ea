package service

import (
	"context"
	"fmt"
	"time"

	"sensor-ingest/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DeviceResolver MAC 地址到设备身份的解析
type DeviceResolver interface {
	GetDeviceByMAC(ctx context.Context, macAddress string) (*models.Device, error)
}

// SensorRegistry 设备传感器通道目录（读启用通道，写运行态）
type SensorRegistry interface {
	FindEnabledChannel(ctx context.Context, deviceID, sensorCode string) (*models.SensorChannel, error)
	UpdateRuntimeState(ctx context.Context, sensorID string, value *decimal.Decimal, updatedAt time.Time, status int) error
}

// SampleStore 采集样本写入
type SampleStore interface {
	Insert(ctx context.Context, sample *models.SensorSample) (int64, error)
}

// RealtimeWriter 实时缓存写入
type RealtimeWriter interface {
	Set(ctx context.Context, deviceID, sensorCode string, value *decimal.Decimal) error
}

// AlertChecker 报警引擎入口（内部消化一切失败，不返回错误）
type AlertChecker interface {
	CheckAndTrigger(ctx context.Context, deviceID, sensorID, sensorCode string, value decimal.Decimal)
}

// IngestService 采集管道：解析设备 → 逐条落库、更新运行态、写缓存、评估报警
// 单条失败被隔离并记录，绝不中断整批
type IngestService struct {
	devices  DeviceResolver
	registry SensorRegistry
	samples  SampleStore
	cache    RealtimeWriter
	engine   AlertChecker
	logger   *zap.Logger
	now      func() time.Time
}

// NewIngestService 创建采集管道服务
func NewIngestService(
	devices DeviceResolver,
	registry SensorRegistry,
	samples SampleStore,
	cache RealtimeWriter,
	engine AlertChecker,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		devices:  devices,
		registry: registry,
		samples:  samples,
		cache:    cache,
		engine:   engine,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessReport 处理一批上报
// 空载荷视为成功空操作；设备无法识别整批拒绝且不落任何数据；
// 其余失败都是条目级的，整批仍然接受
func (s *IngestService) ProcessReport(ctx context.Context, report *models.SensorReport) (*models.ReportResult, error) {
	result := &models.ReportResult{Accepted: true}

	if report == nil || len(report.Sensors) == 0 {
		s.logger.Warn("Empty sensor data payload")
		return result, nil
	}

	device, err := s.devices.GetDeviceByMAC(ctx, report.MacAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device: %w", err)
	}
	if device == nil {
		s.logger.Warn("Device not found for MAC",
			zap.String("mac_address", report.MacAddress),
		)
		result.Accepted = false
		return result, nil
	}

	collectedAt := s.now()
	if report.Timestamp != nil {
		collectedAt = *report.Timestamp
	}

	for _, item := range report.Sensors {
		result.Items = append(result.Items, s.processItem(ctx, device, item, collectedAt))
	}

	return result, nil
}

// processItem 处理单个通道读数，返回该条目的处理结果
func (s *IngestService) processItem(ctx context.Context, device *models.Device, item models.SensorItem, collectedAt time.Time) models.ItemResult {
	channel, err := s.registry.FindEnabledChannel(ctx, device.ID, item.SensorCode)
	if err != nil {
		return s.failItem(device.ID, item.SensorCode, "failed to look up sensor channel", err)
	}
	if channel == nil {
		s.logger.Debug("Sensor not found or disabled",
			zap.String("device_id", device.ID),
			zap.String("sensor_code", item.SensorCode),
		)
		return models.ItemResult{SensorCode: item.SensorCode, Outcome: models.ItemSkipped}
	}

	var value *decimal.Decimal
	var rawValue *string
	if item.Value != nil {
		v := decimal.NewFromFloat(*item.Value)
		value = &v
		raw := v.String()
		rawValue = &raw
	}

	sample := &models.SensorSample{
		DeviceID:    device.ID,
		SensorID:    channel.ID,
		SensorCode:  channel.SensorCode,
		Value:       value,
		RawValue:    rawValue,
		Quality:     models.QualityNormal,
		CollectedAt: collectedAt,
		CreatedAt:   s.now(),
	}
	if _, err := s.samples.Insert(ctx, sample); err != nil {
		return s.failItem(device.ID, item.SensorCode, "failed to persist sensor sample", err)
	}

	if err := s.registry.UpdateRuntimeState(ctx, channel.ID, value, collectedAt, models.SensorStatusNormal); err != nil {
		return s.failItem(device.ID, item.SensorCode, "failed to update sensor runtime state", err)
	}

	if err := s.cache.Set(ctx, device.ID, channel.SensorCode, value); err != nil {
		return s.failItem(device.ID, item.SensorCode, "failed to update realtime cache", err)
	}

	if value != nil {
		s.engine.CheckAndTrigger(ctx, device.ID, channel.ID, channel.SensorCode, *value)
	}

	s.logger.Debug("Sensor data saved",
		zap.String("device_id", device.ID),
		zap.String("sensor_code", item.SensorCode),
	)

	return models.ItemResult{SensorCode: item.SensorCode, Outcome: models.ItemSaved}
}

// failItem 记录条目失败并继续处理后续条目
func (s *IngestService) failItem(deviceID, sensorCode, msg string, err error) models.ItemResult {
	s.logger.Error("Error processing sensor data",
		zap.String("device_id", deviceID),
		zap.String("sensor_code", sensorCode),
		zap.String("stage", msg),
		zap.Error(err),
	)
	return models.ItemResult{
		SensorCode: sensorCode,
		Outcome:    models.ItemFailed,
		Err:        fmt.Errorf("%s: %w", msg, err),
	}
}
