package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sensor-ingest/internal/models"

	"go.uber.org/zap"
)

// DeviceRepository 设备仓库（采集管道用 MAC 地址解析设备身份）
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

// GetDeviceByMAC 按 MAC 地址查找设备，未找到返回 (nil, nil)
func (r *DeviceRepository) GetDeviceByMAC(ctx context.Context, macAddress string) (*models.Device, error) {
	if macAddress == "" {
		return nil, fmt.Errorf("mac_address is required")
	}

	query := `
		SELECT id, mac_address, device_name
		FROM devices
		WHERE mac_address = $1
	`

	var device models.Device
	err := r.db.QueryRowContext(ctx, query, macAddress).Scan(
		&device.ID,
		&device.MacAddress,
		&device.DeviceName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device by mac: %w", err)
	}

	return &device, nil
}
