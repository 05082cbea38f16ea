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

// 历史查询单次返回的样本数上限
const historyLimit = 1000

// SensorSampleRepository 采集样本仓库（sensor_data 表，只追加）
type SensorSampleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSensorSampleRepository 创建采集样本仓库
func NewSensorSampleRepository(db *sql.DB, logger *zap.Logger) *SensorSampleRepository {
	return &SensorSampleRepository{
		db:     db,
		logger: logger,
	}
}

// Insert 写入一条采集样本，返回自增 id
func (r *SensorSampleRepository) Insert(ctx context.Context, sample *models.SensorSample) (int64, error) {
	if sample == nil {
		return 0, fmt.Errorf("sample is required")
	}
	if sample.DeviceID == "" {
		return 0, fmt.Errorf("device_id is required")
	}
	if sample.SensorID == "" {
		return 0, fmt.Errorf("sensor_id is required")
	}

	query := `
		INSERT INTO sensor_data (
			device_id,
			sensor_id,
			sensor_code,
			value,
			raw_value,
			quality,
			collected_at,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id
	`

	var value interface{}
	if sample.Value != nil {
		value = sample.Value.String()
	}
	var rawValue interface{}
	if sample.RawValue != nil {
		rawValue = *sample.RawValue
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		sample.DeviceID,
		sample.SensorID,
		sample.SensorCode,
		value,
		rawValue,
		sample.Quality,
		sample.CollectedAt,
		sample.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sensor sample: %w", err)
	}

	return id, nil
}

// GetLatest 获取通道最近一条样本（实时读取的回源路径），无数据返回 (nil, nil)
func (r *SensorSampleRepository) GetLatest(ctx context.Context, deviceID, sensorCode string) (*models.SensorSample, error) {
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
			sensor_id,
			sensor_code,
			value,
			raw_value,
			quality,
			collected_at,
			created_at
		FROM sensor_data
		WHERE device_id = $1
		  AND sensor_code = $2
		ORDER BY collected_at DESC
		LIMIT 1
	`

	var sample models.SensorSample
	var value, rawValue sql.NullString

	err := r.db.QueryRowContext(ctx, query, deviceID, sensorCode).Scan(
		&sample.ID,
		&sample.DeviceID,
		&sample.SensorID,
		&sample.SensorCode,
		&value,
		&rawValue,
		&sample.Quality,
		&sample.CollectedAt,
		&sample.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest sensor sample: %w", err)
	}

	if value.Valid {
		v, err := decimal.NewFromString(value.String)
		if err != nil {
			return nil, fmt.Errorf("invalid sample value %q: %w", value.String, err)
		}
		sample.Value = &v
	}
	if rawValue.Valid {
		sample.RawValue = &rawValue.String
	}

	return &sample, nil
}

// ListSamples 查询通道在 [start, end] 时间窗内的历史样本
// 按采集时间倒序，最多返回 1000 条
func (r *SensorSampleRepository) ListSamples(ctx context.Context, deviceID, sensorID string, start, end time.Time) ([]*models.SensorSample, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if sensorID == "" {
		return nil, fmt.Errorf("sensor_id is required")
	}

	query := `
		SELECT
			id,
			device_id,
			sensor_id,
			sensor_code,
			value,
			raw_value,
			quality,
			collected_at,
			created_at
		FROM sensor_data
		WHERE device_id = $1
		  AND sensor_id = $2
		  AND collected_at BETWEEN $3 AND $4
		ORDER BY collected_at DESC
		LIMIT $5
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, sensorID, start, end, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor history: %w", err)
	}
	defer rows.Close()

	samples := []*models.SensorSample{}
	for rows.Next() {
		var sample models.SensorSample
		var value, rawValue sql.NullString

		err := rows.Scan(
			&sample.ID,
			&sample.DeviceID,
			&sample.SensorID,
			&sample.SensorCode,
			&value,
			&rawValue,
			&sample.Quality,
			&sample.CollectedAt,
			&sample.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor sample: %w", err)
		}

		if value.Valid {
			v, err := decimal.NewFromString(value.String)
			if err != nil {
				return nil, fmt.Errorf("invalid sample value %q: %w", value.String, err)
			}
			sample.Value = &v
		}
		if rawValue.Valid {
			sample.RawValue = &rawValue.String
		}

		samples = append(samples, &sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensor samples: %w", err)
	}

	return samples, nil
}
