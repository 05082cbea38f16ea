package service

import (
	"context"
	"fmt"

	"sensor-ingest/internal/cache"
	"sensor-ingest/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RealtimeReader 实时缓存读写（回源后回填）
type RealtimeReader interface {
	Get(ctx context.Context, deviceID, sensorCode string) (*decimal.Decimal, error)
	Set(ctx context.Context, deviceID, sensorCode string, value *decimal.Decimal) error
}

// LatestSampleStore 最新样本回源查询
type LatestSampleStore interface {
	GetLatest(ctx context.Context, deviceID, sensorCode string) (*models.SensorSample, error)
}

// RealtimeService 实时值读取：缓存命中直接返回，未命中回源 sensor_data 并回填
// 缓存未命中以存储为准，反向永远不成立
type RealtimeService struct {
	cache   RealtimeReader
	samples LatestSampleStore
	logger  *zap.Logger
}

// NewRealtimeService 创建实时读取服务
func NewRealtimeService(cache RealtimeReader, samples LatestSampleStore, logger *zap.Logger) *RealtimeService {
	return &RealtimeService{
		cache:   cache,
		samples: samples,
		logger:  logger,
	}
}

// GetRealtimeValue 读取通道最新值，无任何数据返回 (nil, nil)
func (s *RealtimeService) GetRealtimeValue(ctx context.Context, deviceID, sensorCode string) (*models.RealtimeValue, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if sensorCode == "" {
		return nil, fmt.Errorf("sensor_code is required")
	}

	value, err := s.cache.Get(ctx, deviceID, sensorCode)
	if err == nil {
		return &models.RealtimeValue{
			DeviceID:   deviceID,
			SensorCode: sensorCode,
			Value:      value,
			Source:     "cache",
		}, nil
	}
	if err != cache.ErrMiss {
		// 缓存故障降级为回源，不向调用方报错
		s.logger.Warn("Realtime cache read failed",
			zap.String("device_id", deviceID),
			zap.String("sensor_code", sensorCode),
			zap.Error(err),
		)
	}

	sample, err := s.samples.GetLatest(ctx, deviceID, sensorCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest sample: %w", err)
	}
	if sample == nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, deviceID, sensorCode, sample.Value); err != nil {
		s.logger.Warn("Failed to repopulate realtime cache",
			zap.String("device_id", deviceID),
			zap.String("sensor_code", sensorCode),
			zap.Error(err),
		)
	}

	collectedAt := sample.CollectedAt
	return &models.RealtimeValue{
		DeviceID:    deviceID,
		SensorCode:  sensorCode,
		Value:       sample.Value,
		CollectedAt: &collectedAt,
		Source:      "store",
	}, nil
}
