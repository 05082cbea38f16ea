package alert

import (
	"encoding/json"
	"errors"
	"fmt"

	"sensor-ingest/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUnknownConditionType 未知的条件类型
var ErrUnknownConditionType = errors.New("unknown condition type")

// Condition 解码后的报警条件（规则加载时解码一次，评估时做穷举匹配）
type Condition interface {
	// Matches 判断当前值是否命中条件
	Matches(value decimal.Decimal) bool
}

// ThresholdCondition 阈值条件：value <operator> threshold
type ThresholdCondition struct {
	Operator  string
	Threshold decimal.Decimal
}

// Matches 使用精确的十进制比较（不做浮点容差）
func (c *ThresholdCondition) Matches(value decimal.Decimal) bool {
	cmp := value.Cmp(c.Threshold)
	switch c.Operator {
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	}
	return false
}

// RangeCondition 范围条件：值落在闭区间 [min, max] 之外时命中
// （"在区间内报警"无法用该类型表达）
type RangeCondition struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (c *RangeCondition) Matches(value decimal.Decimal) bool {
	return value.Cmp(c.Min) < 0 || value.Cmp(c.Max) > 0
}

// ChangeRateCondition 变化率条件
// 需要历史数据回溯窗口，上游未定义计算方式，当前永不命中
type ChangeRateCondition struct {
	Raw json.RawMessage
}

func (c *ChangeRateCondition) Matches(value decimal.Decimal) bool {
	return false
}

var validOperators = map[string]bool{
	">": true, ">=": true, "<": true, "<=": true, "==": true, "!=": true,
}

// ParseCondition 将规则的条件配置解码为强类型条件
// 配置缺字段、数值非法、类型未知都返回错误，由调用方按"不触发"处理
func ParseCondition(conditionType string, config json.RawMessage) (Condition, error) {
	switch conditionType {
	case models.ConditionThreshold:
		var raw struct {
			Operator  string       `json:"operator"`
			Threshold *json.Number `json:"threshold"`
		}
		if err := json.Unmarshal(config, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse threshold condition: %w", err)
		}
		if raw.Operator == "" || raw.Threshold == nil {
			return nil, fmt.Errorf("threshold condition requires operator and threshold")
		}
		if !validOperators[raw.Operator] {
			return nil, fmt.Errorf("invalid threshold operator: %s", raw.Operator)
		}
		threshold, err := decimal.NewFromString(raw.Threshold.String())
		if err != nil {
			return nil, fmt.Errorf("invalid threshold value %q: %w", raw.Threshold.String(), err)
		}
		return &ThresholdCondition{Operator: raw.Operator, Threshold: threshold}, nil

	case models.ConditionRange:
		var raw struct {
			Min *json.Number `json:"min"`
			Max *json.Number `json:"max"`
		}
		if err := json.Unmarshal(config, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse range condition: %w", err)
		}
		if raw.Min == nil || raw.Max == nil {
			return nil, fmt.Errorf("range condition requires min and max")
		}
		min, err := decimal.NewFromString(raw.Min.String())
		if err != nil {
			return nil, fmt.Errorf("invalid range min %q: %w", raw.Min.String(), err)
		}
		max, err := decimal.NewFromString(raw.Max.String())
		if err != nil {
			return nil, fmt.Errorf("invalid range max %q: %w", raw.Max.String(), err)
		}
		return &RangeCondition{Min: min, Max: max}, nil

	case models.ConditionChangeRate:
		return &ChangeRateCondition{Raw: config}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownConditionType, conditionType)
	}
}
