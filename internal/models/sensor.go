package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// 传感器通道状态（device_sensors.status）
const (
	SensorStatusOffline  = 0
	SensorStatusNormal   = 1
	SensorStatusAbnormal = 2
)

// 采集数据质量（sensor_data.quality）
const (
	QualityPoor   = 0
	QualityNormal = 1
	QualityGood   = 2
)

// Device 设备（通过 MAC 地址解析得到）
type Device struct {
	ID         string `json:"id" db:"id"`
	MacAddress string `json:"mac_address" db:"mac_address"`
	DeviceName string `json:"device_name" db:"device_name"`
}

// SensorChannel 设备传感器通道配置（对应 device_sensors 表）
// 运行态字段（last_value / last_updated_at / status）由采集管道更新
type SensorChannel struct {
	ID            string           `json:"id" db:"id"`
	DeviceID      string           `json:"device_id" db:"device_id"`
	SensorTypeID  string           `json:"sensor_type_id" db:"sensor_type_id"`
	SensorCode    string           `json:"sensor_code" db:"sensor_code"`
	SensorName    string           `json:"sensor_name" db:"sensor_name"`
	GpioPin       *string          `json:"gpio_pin,omitempty" db:"gpio_pin"`
	Config        json.RawMessage  `json:"config,omitempty" db:"config_json"`
	Calibration   json.RawMessage  `json:"calibration,omitempty" db:"calibration_data"`
	IsEnabled     bool             `json:"is_enabled" db:"is_enabled"`
	Location      *string          `json:"location,omitempty" db:"location"`
	Sort          int              `json:"sort" db:"sort"`
	LastValue     *decimal.Decimal `json:"last_value,omitempty" db:"last_value"`
	LastUpdatedAt *time.Time       `json:"last_updated_at,omitempty" db:"last_updated_at"`
	Status        int              `json:"status" db:"status"`
}

// SensorSample 一条采集记录（对应 sensor_data 表，只追加、写入后不可变）
type SensorSample struct {
	ID          int64            `json:"id" db:"id"`
	DeviceID    string           `json:"device_id" db:"device_id"`
	SensorID    string           `json:"sensor_id" db:"sensor_id"`
	SensorCode  string           `json:"sensor_code" db:"sensor_code"`
	Value       *decimal.Decimal `json:"value,omitempty" db:"value"`
	RawValue    *string          `json:"raw_value,omitempty" db:"raw_value"`
	Quality     int              `json:"quality" db:"quality"`
	CollectedAt time.Time        `json:"collected_at" db:"collected_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// RealtimeValue 实时读取结果（缓存命中或回源到 sensor_data 最新一条）
type RealtimeValue struct {
	DeviceID    string           `json:"device_id"`
	SensorCode  string           `json:"sensor_code"`
	Value       *decimal.Decimal `json:"value"`
	CollectedAt *time.Time       `json:"collected_at,omitempty"`
	Source      string           `json:"source"` // cache / store
}
