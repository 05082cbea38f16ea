package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// RealtimeCache 设备通道最新值的短 TTL 缓存
// 只是读路径加速器：每条接受的样本写穿一次，过期即回源存储
type RealtimeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRealtimeCache 创建实时缓存，ttl 是过期上限（默认 60 秒由配置给出）
func NewRealtimeCache(client *redis.Client, ttl time.Duration) *RealtimeCache {
	return &RealtimeCache{
		client: client,
		ttl:    ttl,
	}
}

func realtimeKey(deviceID, sensorCode string) string {
	return fmt.Sprintf("sensor:realtime:%s:%s", deviceID, sensorCode)
}

// Set 覆盖写入 (device, sensorCode) 的最新值；value 为 nil 写入空串
func (c *RealtimeCache) Set(ctx context.Context, deviceID, sensorCode string, value *decimal.Decimal) error {
	raw := ""
	if value != nil {
		raw = value.String()
	}
	return c.client.Set(ctx, realtimeKey(deviceID, sensorCode), raw, c.ttl).Err()
}

// Get 读取最新值；键不存在返回 ErrMiss，空值条目返回 (nil, nil)
func (c *RealtimeCache) Get(ctx context.Context, deviceID, sensorCode string) (*decimal.Decimal, error) {
	raw, err := c.client.Get(ctx, realtimeKey(deviceID, sensorCode)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid cached value %q: %w", raw, err)
	}
	return &v, nil
}
