package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sensor-ingest/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AlertLogRepository 报警记录仓库
type AlertLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertLogRepository 创建报警记录仓库
func NewAlertLogRepository(db *sql.DB, logger *zap.Logger) *AlertLogRepository {
	return &AlertLogRepository{
		db:     db,
		logger: logger,
	}
}

// AlertLogFilters 报警记录过滤条件
type AlertLogFilters struct {
	DeviceID   *string // 设备ID
	SensorID   *string // 传感器通道ID
	IsResolved *bool   // 是否已解决
}

// InsertAlertLog 写入一条报警记录，返回自增 id
func (r *AlertLogRepository) InsertAlertLog(ctx context.Context, entry *models.AlertLog) (int64, error) {
	if entry == nil {
		return 0, fmt.Errorf("entry is required")
	}
	if entry.RuleID == "" {
		return 0, fmt.Errorf("rule_id is required")
	}

	query := `
		INSERT INTO sensor_alert_logs (
			rule_id,
			device_id,
			sensor_id,
			alert_level,
			alert_message,
			sensor_value,
			threshold_value,
			is_resolved,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, 0, $8
		)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		entry.RuleID,
		entry.DeviceID,
		entry.SensorID,
		entry.AlertLevel,
		entry.AlertMessage,
		entry.SensorValue.String(),
		entry.ThresholdValue,
		entry.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert log: %w", err)
	}

	return id, nil
}

// ResolveAlertLog 标记报警已解决
// 只允许 0→1 转换一次；重复 resolve 是幂等空操作，不报错
func (r *AlertLogRepository) ResolveAlertLog(ctx context.Context, id int64, resolvedBy string) error {
	if id <= 0 {
		return fmt.Errorf("id is required")
	}

	query := `
		UPDATE sensor_alert_logs
		SET is_resolved = 1,
		    resolved_at = CURRENT_TIMESTAMP,
		    resolved_by = $2
		WHERE id = $1
		  AND is_resolved = 0
	`

	result, err := r.db.ExecContext(ctx, query, id, resolvedBy)
	if err != nil {
		return fmt.Errorf("failed to resolve alert log: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// 已解决或不存在；只有不存在才是错误
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM sensor_alert_logs WHERE id = $1`, id,
		).Scan(&exists)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("alert log not found: id=%d", id)
			}
			return fmt.Errorf("failed to check alert log: %w", err)
		}
	}

	return nil
}

// ListAlertLogs 列表查询（条件过滤 + 分页，按触发时间倒序）
func (r *AlertLogRepository) ListAlertLogs(ctx context.Context, filters AlertLogFilters, page, size int) ([]*models.AlertLog, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	argN := 1

	if filters.DeviceID != nil {
		where = append(where, fmt.Sprintf("device_id = $%d", argN))
		args = append(args, *filters.DeviceID)
		argN++
	}
	if filters.SensorID != nil {
		where = append(where, fmt.Sprintf("sensor_id = $%d", argN))
		args = append(args, *filters.SensorID)
		argN++
	}
	if filters.IsResolved != nil {
		resolved := 0
		if *filters.IsResolved {
			resolved = 1
		}
		where = append(where, fmt.Sprintf("is_resolved = $%d", argN))
		args = append(args, resolved)
		argN++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	queryCount := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM sensor_alert_logs
		%s
	`, whereClause)

	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alert logs: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
		SELECT
			id,
			rule_id,
			device_id,
			sensor_id,
			alert_level,
			alert_message,
			sensor_value,
			threshold_value,
			is_resolved,
			resolved_at,
			resolved_by,
			created_at
		FROM sensor_alert_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argN, argN+1)

	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alert logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.AlertLog{}
	for rows.Next() {
		var entry models.AlertLog
		var sensorValue string
		var isResolved int
		var resolvedAt sql.NullTime
		var resolvedBy sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.RuleID,
			&entry.DeviceID,
			&entry.SensorID,
			&entry.AlertLevel,
			&entry.AlertMessage,
			&sensorValue,
			&entry.ThresholdValue,
			&isResolved,
			&resolvedAt,
			&resolvedBy,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert log: %w", err)
		}

		v, err := decimal.NewFromString(sensorValue)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid sensor_value %q: %w", sensorValue, err)
		}
		entry.SensorValue = v
		entry.IsResolved = isResolved == 1
		if resolvedAt.Valid {
			entry.ResolvedAt = &resolvedAt.Time
		}
		if resolvedBy.Valid {
			entry.ResolvedBy = &resolvedBy.String
		}

		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alert logs: %w", err)
	}

	return logs, total, nil
}
