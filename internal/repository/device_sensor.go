package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sensor-ingest/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SensorChannelRepository 设备传感器通道仓库
// 采集管道只读启用的通道，写入运行态字段（last_value / last_updated_at / status）
type SensorChannelRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSensorChannelRepository 创建传感器通道仓库
func NewSensorChannelRepository(db *sql.DB, logger *zap.Logger) *SensorChannelRepository {
	return &SensorChannelRepository{
		db:     db,
		logger: logger,
	}
}

// FindEnabledChannel 按 (device_id, sensor_code) 查找启用的通道
// 未配置或被禁用返回 (nil, nil)，上报方不视为错误
func (r *SensorChannelRepository) FindEnabledChannel(ctx context.Context, deviceID, sensorCode string) (*models.SensorChannel, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if sensorCode == "" {
		return nil, fmt.Errorf("sensor_code is required")
	}

	query := `
		SELECT
			id,
			device_id,
			sensor_type_id,
			sensor_code,
			sensor_name,
			gpio_pin,
			config_json,
			calibration_data,
			location,
			sort,
			last_value,
			last_updated_at,
			status
		FROM device_sensors
		WHERE device_id = $1
		  AND sensor_code = $2
		  AND is_enabled = 1
	`

	var channel models.SensorChannel
	var gpioPin, location sql.NullString
	var configJSON, calibrationData []byte
	var lastValue sql.NullString
	var lastUpdatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, deviceID, sensorCode).Scan(
		&channel.ID,
		&channel.DeviceID,
		&channel.SensorTypeID,
		&channel.SensorCode,
		&channel.SensorName,
		&gpioPin,
		&configJSON,
		&calibrationData,
		&location,
		&channel.Sort,
		&lastValue,
		&lastUpdatedAt,
		&channel.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sensor channel: %w", err)
	}

	channel.IsEnabled = true
	if gpioPin.Valid {
		channel.GpioPin = &gpioPin.String
	}
	if location.Valid {
		channel.Location = &location.String
	}
	channel.Config = configJSON
	channel.Calibration = calibrationData
	if lastValue.Valid {
		v, err := decimal.NewFromString(lastValue.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_value %q: %w", lastValue.String, err)
		}
		channel.LastValue = &v
	}
	if lastUpdatedAt.Valid {
		channel.LastUpdatedAt = &lastUpdatedAt.Time
	}

	return &channel, nil
}

// UpdateRuntimeState 更新通道运行态（单条 UPDATE，字段组原子写入）
// 并发采集同一通道时为 last-write-wins
func (r *SensorChannelRepository) UpdateRuntimeState(ctx context.Context, sensorID string, value *decimal.Decimal, updatedAt time.Time, status int) error {
	if sensorID == "" {
		return fmt.Errorf("sensor_id is required")
	}

	query := `
		UPDATE device_sensors
		SET last_value = $1,
		    last_updated_at = $2,
		    status = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`

	var lastValue interface{}
	if value != nil {
		lastValue = value.String()
	}

	result, err := r.db.ExecContext(ctx, query, lastValue, updatedAt, status, sensorID)
	if err != nil {
		return fmt.Errorf("failed to update sensor runtime state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("sensor channel not found: sensor_id=%s", sensorID)
	}

	return nil
}
