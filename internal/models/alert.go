package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// 报警条件类型（sensor_alert_rules.condition_type）
const (
	ConditionThreshold  = "threshold"
	ConditionRange      = "range"
	ConditionChangeRate = "change_rate"
)

// 报警动作类型（sensor_alert_rules.action_type）
const (
	ActionNotification = "notification"
	ActionVoice        = "voice"
	ActionPlugin       = "plugin"
)

// AlertRule 传感器报警规则（对应 sensor_alert_rules 表）
// device_id 为空表示按传感器类型匹配所有设备，sensor_id 为空表示匹配设备下所有通道。
// 冷却状态单调推进：last_triggered_at 只向前，trigger_count 只递增，
// 且两者只由报警引擎通过 RecordTrigger 更新。
type AlertRule struct {
	ID              string          `json:"id" db:"id"`
	RuleName        string          `json:"rule_name" db:"rule_name"`
	DeviceID        *string         `json:"device_id,omitempty" db:"device_id"`
	SensorID        *string         `json:"sensor_id,omitempty" db:"sensor_id"`
	SensorTypeID    *string         `json:"sensor_type_id,omitempty" db:"sensor_type_id"`
	ConditionType   string          `json:"condition_type" db:"condition_type"`
	ConditionConfig json.RawMessage `json:"condition_config" db:"condition_config"`
	AlertLevel      int             `json:"alert_level" db:"alert_level"`
	AlertMessage    *string         `json:"alert_message,omitempty" db:"alert_message"`
	ActionType      *string         `json:"action_type,omitempty" db:"action_type"`
	ActionConfig    json.RawMessage `json:"action_config,omitempty" db:"action_config"`
	CooldownMinutes *int            `json:"cooldown_minutes,omitempty" db:"cooldown_minutes"`
	IsEnabled       bool            `json:"is_enabled" db:"is_enabled"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty" db:"last_triggered_at"`
	TriggerCount    int             `json:"trigger_count" db:"trigger_count"`
}

// AlertLog 一次规则触发的记录（对应 sensor_alert_logs 表）
// 写入后只有 resolved 字段组可变，且只允许 false→true 一次（重复 resolve 为幂等空操作）。
type AlertLog struct {
	ID             int64           `json:"id" db:"id"`
	RuleID         string          `json:"rule_id" db:"rule_id"`
	DeviceID       string          `json:"device_id" db:"device_id"`
	SensorID       string          `json:"sensor_id" db:"sensor_id"`
	AlertLevel     int             `json:"alert_level" db:"alert_level"`
	AlertMessage   string          `json:"alert_message" db:"alert_message"`
	SensorValue    decimal.Decimal `json:"sensor_value" db:"sensor_value"`
	ThresholdValue string          `json:"threshold_value" db:"threshold_value"` // 触发时的条件配置快照
	IsResolved     bool            `json:"is_resolved" db:"is_resolved"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy     *string         `json:"resolved_by,omitempty" db:"resolved_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
