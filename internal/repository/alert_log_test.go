package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"sensor-ingest/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInsertAlertLog_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertLogRepository(db, zap.NewNop())

	createdAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	entry := &models.AlertLog{
		RuleID:         "rule-1",
		DeviceID:       "device-1",
		SensorID:       "sensor-1",
		AlertLevel:     2,
		AlertMessage:   "Sensor alert: high temperature, current value: 105",
		SensorValue:    decimal.NewFromInt(105),
		ThresholdValue: `{"operator": ">", "threshold": 100}`,
		CreatedAt:      createdAt,
	}

	mock.ExpectQuery(`INSERT INTO sensor_alert_logs`).
		WithArgs(
			entry.RuleID, entry.DeviceID, entry.SensorID, entry.AlertLevel,
			entry.AlertMessage, "105", entry.ThresholdValue, createdAt,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := repo.InsertAlertLog(context.Background(), entry)

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAlertLog_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertLogRepository(db, zap.NewNop())

	mock.ExpectExec(`UPDATE sensor_alert_logs`).
		WithArgs(int64(7), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ResolveAlertLog(context.Background(), 7, "user-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAlertLog_AlreadyResolvedIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertLogRepository(db, zap.NewNop())

	// 0 行更新后要区分「已解决」与「不存在」
	mock.ExpectExec(`UPDATE sensor_alert_logs`).
		WithArgs(int64(7), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM sensor_alert_logs`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	err := repo.ResolveAlertLog(context.Background(), 7, "user-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAlertLog_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertLogRepository(db, zap.NewNop())

	mock.ExpectExec(`UPDATE sensor_alert_logs`).
		WithArgs(int64(99), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM sensor_alert_logs`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	err := repo.ResolveAlertLog(context.Background(), 99, "user-1")

	assert.Error(t, err)
}

func TestListAlertLogs_WithFilters(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertLogRepository(db, zap.NewNop())

	deviceID := "device-1"
	resolved := false
	filters := AlertLogFilters{DeviceID: &deviceID, IsResolved: &resolved}

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(deviceID, 0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	createdAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "rule_id", "device_id", "sensor_id", "alert_level",
		"alert_message", "sensor_value", "threshold_value",
		"is_resolved", "resolved_at", "resolved_by", "created_at",
	}).AddRow(
		int64(7), "rule-1", "device-1", "sensor-1", 2,
		"too hot", "105", `{"operator": ">", "threshold": 100}`,
		0, nil, nil, createdAt,
	)

	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WithArgs(deviceID, 0, 20, 0).
		WillReturnRows(rows)

	logs, total, err := repo.ListAlertLogs(context.Background(), filters, 1, 20)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(7), logs[0].ID)
	assert.True(t, logs[0].SensorValue.Equal(decimal.NewFromInt(105)))
	assert.False(t, logs[0].IsResolved)
	assert.Nil(t, logs[0].ResolvedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAlertLogs_EmptyPage(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewAlertLogRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "rule_id", "device_id", "sensor_id", "alert_level",
			"alert_message", "sensor_value", "threshold_value",
			"is_resolved", "resolved_at", "resolved_by", "created_at",
		}))

	logs, total, err := repo.ListAlertLogs(context.Background(), AlertLogFilters{}, 1, 20)

	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, logs)
}
