package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sensor-ingest/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RuleStore 报警规则读取与触发状态更新
// RecordTrigger 必须在存储端做原子递增（trigger_count = trigger_count + 1），
// 避免并发触发时丢更新
type RuleStore interface {
	FindMatchingRules(ctx context.Context, deviceID, sensorID string) ([]models.AlertRule, error)
	RecordTrigger(ctx context.Context, ruleID string, firedAt time.Time) error
}

// LogStore 报警记录写入
type LogStore interface {
	InsertAlertLog(ctx context.Context, entry *models.AlertLog) (int64, error)
}

// Dispatcher 报警动作下发（notification / voice / plugin）
type Dispatcher interface {
	Dispatch(ctx context.Context, actionType, message string, actionConfig json.RawMessage) error
}

// Engine 传感器报警引擎
// 所有失败在规则粒度内消化，绝不向采集管道抛出
type Engine struct {
	rules      RuleStore
	logs       LogStore
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine 创建报警引擎
func NewEngine(rules RuleStore, logs LogStore, dispatcher Dispatcher, logger *zap.Logger) *Engine {
	return &Engine{
		rules:      rules,
		logs:       logs,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CheckAndTrigger 用新值评估所有匹配规则并触发命中的规则
func (e *Engine) CheckAndTrigger(ctx context.Context, deviceID, sensorID, sensorCode string, value decimal.Decimal) {
	rules, err := e.rules.FindMatchingRules(ctx, deviceID, sensorID)
	if err != nil {
		e.logger.Error("Failed to load alert rules",
			zap.String("device_id", deviceID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
		return
	}

	for i := range rules {
		rule := &rules[i]
		if e.shouldTrigger(rule, value) {
			e.trigger(ctx, rule, deviceID, sensorID, value)
		}
	}
}

// shouldTrigger 先过冷却门，再做条件评估；任何解析失败按不触发处理
func (e *Engine) shouldTrigger(rule *models.AlertRule, value decimal.Decimal) bool {
	if rule.LastTriggeredAt != nil && rule.CooldownMinutes != nil {
		cooldown := time.Duration(*rule.CooldownMinutes) * time.Minute
		if e.now().Sub(*rule.LastTriggeredAt) < cooldown {
			return false
		}
	}

	cond, err := ParseCondition(rule.ConditionType, rule.ConditionConfig)
	if err != nil {
		e.logger.Warn("Failed to parse alert condition",
			zap.String("rule_id", rule.ID),
			zap.String("condition_type", rule.ConditionType),
			zap.Error(err),
		)
		return false
	}

	return cond.Matches(value)
}

// trigger 落库报警记录、推进规则触发状态、下发动作
// 三步依次执行，前一步失败则中止该规则的触发，其它规则不受影响
func (e *Engine) trigger(ctx context.Context, rule *models.AlertRule, deviceID, sensorID string, value decimal.Decimal) {
	now := e.now()

	entry := &models.AlertLog{
		RuleID:         rule.ID,
		DeviceID:       deviceID,
		SensorID:       sensorID,
		AlertLevel:     rule.AlertLevel,
		AlertMessage:   e.buildMessage(rule, value),
		SensorValue:    value,
		ThresholdValue: string(rule.ConditionConfig),
		IsResolved:     false,
		CreatedAt:      now,
	}

	if _, err := e.logs.InsertAlertLog(ctx, entry); err != nil {
		e.logger.Error("Failed to create alert log",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
		return
	}

	if err := e.rules.RecordTrigger(ctx, rule.ID, now); err != nil {
		e.logger.Error("Failed to record rule trigger",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
		return
	}

	e.executeAction(ctx, rule, entry)

	e.logger.Info("Alert triggered",
		zap.String("rule_id", rule.ID),
		zap.String("device_id", deviceID),
		zap.String("sensor_id", sensorID),
		zap.String("value", value.String()),
	)
}

// buildMessage 渲染消息模板，未配置模板时生成默认消息
func (e *Engine) buildMessage(rule *models.AlertRule, value decimal.Decimal) string {
	if rule.AlertMessage != nil && *rule.AlertMessage != "" {
		msg := strings.ReplaceAll(*rule.AlertMessage, "{value}", value.String())
		return strings.ReplaceAll(msg, "{rule_name}", rule.RuleName)
	}
	return fmt.Sprintf("Sensor alert: %s, current value: %s", rule.RuleName, value.String())
}

// executeAction 下发报警动作，失败只记录日志
func (e *Engine) executeAction(ctx context.Context, rule *models.AlertRule, entry *models.AlertLog) {
	if rule.ActionType == nil || *rule.ActionType == "" {
		return
	}
	if err := e.dispatcher.Dispatch(ctx, *rule.ActionType, entry.AlertMessage, rule.ActionConfig); err != nil {
		e.logger.Error("Failed to execute alert action",
			zap.String("rule_id", rule.ID),
			zap.String("action_type", *rule.ActionType),
			zap.Error(err),
		)
	}
}
