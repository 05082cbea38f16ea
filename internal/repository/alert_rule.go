package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sensor-ingest/internal/models"

	"go.uber.org/zap"
)

// AlertRuleRepository 报警规则仓库
// 触发状态（last_triggered_at / trigger_count）只通过 RecordTrigger 推进
type AlertRuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRuleRepository 创建报警规则仓库
func NewAlertRuleRepository(db *sql.DB, logger *zap.Logger) *AlertRuleRepository {
	return &AlertRuleRepository{
		db:     db,
		logger: logger,
	}
}

// FindMatchingRules 查找作用于 (device, sensor) 的启用规则
// sensor_id 为空的规则匹配该设备的所有通道
func (r *AlertRuleRepository) FindMatchingRules(ctx context.Context, deviceID, sensorID string) ([]models.AlertRule, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if sensorID == "" {
		return nil, fmt.Errorf("sensor_id is required")
	}

	query := `
		SELECT
			id,
			rule_name,
			device_id,
			sensor_id,
			sensor_type_id,
			condition_type,
			condition_config,
			alert_level,
			alert_message,
			action_type,
			action_config,
			cooldown_minutes,
			last_triggered_at,
			trigger_count
		FROM sensor_alert_rules
		WHERE is_enabled = 1
		  AND device_id = $1
		  AND (sensor_id = $2 OR sensor_id IS NULL)
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, sensorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		var rule models.AlertRule
		var ruleDeviceID, ruleSensorID, sensorTypeID, alertMessage, actionType sql.NullString
		var conditionConfig, actionConfig []byte
		var cooldownMinutes sql.NullInt64
		var lastTriggeredAt sql.NullTime

		err := rows.Scan(
			&rule.ID,
			&rule.RuleName,
			&ruleDeviceID,
			&ruleSensorID,
			&sensorTypeID,
			&rule.ConditionType,
			&conditionConfig,
			&rule.AlertLevel,
			&alertMessage,
			&actionType,
			&actionConfig,
			&cooldownMinutes,
			&lastTriggeredAt,
			&rule.TriggerCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}

		rule.IsEnabled = true
		rule.ConditionConfig = conditionConfig
		rule.ActionConfig = actionConfig
		if ruleDeviceID.Valid {
			rule.DeviceID = &ruleDeviceID.String
		}
		if ruleSensorID.Valid {
			rule.SensorID = &ruleSensorID.String
		}
		if sensorTypeID.Valid {
			rule.SensorTypeID = &sensorTypeID.String
		}
		if alertMessage.Valid {
			rule.AlertMessage = &alertMessage.String
		}
		if actionType.Valid {
			rule.ActionType = &actionType.String
		}
		if cooldownMinutes.Valid {
			minutes := int(cooldownMinutes.Int64)
			rule.CooldownMinutes = &minutes
		}
		if lastTriggeredAt.Valid {
			rule.LastTriggeredAt = &lastTriggeredAt.Time
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert rules: %w", err)
	}

	return rules, nil
}

// RecordTrigger 推进规则触发状态
// 递增在存储端执行（trigger_count = trigger_count + 1），并发触发不丢更新；
// GREATEST 保证 last_triggered_at 只向前推进
func (r *AlertRuleRepository) RecordTrigger(ctx context.Context, ruleID string, firedAt time.Time) error {
	if ruleID == "" {
		return fmt.Errorf("rule_id is required")
	}

	query := `
		UPDATE sensor_alert_rules
		SET last_triggered_at = GREATEST(COALESCE(last_triggered_at, $2), $2),
		    trigger_count = trigger_count + 1
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, ruleID, firedAt)
	if err != nil {
		return fmt.Errorf("failed to record rule trigger: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alert rule not found: rule_id=%s", ruleID)
	}

	return nil
}
