package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ruleColumns = []string{
	"id", "rule_name", "device_id", "sensor_id", "sensor_type_id",
	"condition_type", "condition_config", "alert_level", "alert_message",
	"action_type", "action_config", "cooldown_minutes", "last_triggered_at", "trigger_count",
}

func TestFindMatchingRules_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertRuleRepository(db, zap.NewNop())

	lastTriggered := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(ruleColumns).
		AddRow(
			"rule-1", "high temperature", "device-1", "sensor-1", nil,
			"threshold", []byte(`{"operator": ">", "threshold": 100}`), 2, "too hot: {value}",
			"notification", []byte(`{"channel": "ops"}`), int64(5), lastTriggered, 3,
		).
		AddRow(
			"rule-2", "device wide", "device-1", nil, nil,
			"range", []byte(`{"min": 0, "max": 100}`), 1, nil,
			nil, nil, nil, nil, 0,
		)

	mock.ExpectQuery(`FROM sensor_alert_rules`).
		WithArgs("device-1", "sensor-1").
		WillReturnRows(rows)

	rules, err := repo.FindMatchingRules(context.Background(), "device-1", "sensor-1")

	require.NoError(t, err)
	require.Len(t, rules, 2)

	first := rules[0]
	assert.Equal(t, "rule-1", first.ID)
	assert.Equal(t, "threshold", first.ConditionType)
	require.NotNil(t, first.SensorID)
	assert.Equal(t, "sensor-1", *first.SensorID)
	require.NotNil(t, first.CooldownMinutes)
	assert.Equal(t, 5, *first.CooldownMinutes)
	require.NotNil(t, first.LastTriggeredAt)
	assert.Equal(t, lastTriggered, *first.LastTriggeredAt)
	assert.Equal(t, 3, first.TriggerCount)
	assert.True(t, first.IsEnabled)

	// 设备级规则的可空字段
	second := rules[1]
	assert.Nil(t, second.SensorID)
	assert.Nil(t, second.AlertMessage)
	assert.Nil(t, second.ActionType)
	assert.Nil(t, second.CooldownMinutes)
	assert.Nil(t, second.LastTriggeredAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindMatchingRules_NoRules(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertRuleRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM sensor_alert_rules`).
		WithArgs("device-1", "sensor-1").
		WillReturnRows(sqlmock.NewRows(ruleColumns))

	rules, err := repo.FindMatchingRules(context.Background(), "device-1", "sensor-1")

	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRecordTrigger_AtomicIncrement(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertRuleRepository(db, zap.NewNop())

	firedAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// 递增必须发生在 SQL 端，不允许读-改-写
	mock.ExpectExec(`trigger_count = trigger_count \+ 1`).
		WithArgs("rule-1", firedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordTrigger(context.Background(), "rule-1", firedAt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTrigger_MonotonicTimestamp(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertRuleRepository(db, zap.NewNop())

	// last_triggered_at 用 GREATEST 写入，乱序到达不回退
	mock.ExpectExec(`GREATEST\(COALESCE\(last_triggered_at, \$2\), \$2\)`).
		WithArgs("rule-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordTrigger(context.Background(), "rule-1", time.Now())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTrigger_RuleGone(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertRuleRepository(db, zap.NewNop())

	mock.ExpectExec(`UPDATE sensor_alert_rules`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordTrigger(context.Background(), "rule-gone", time.Now())

	assert.Error(t, err)
}
