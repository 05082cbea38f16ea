package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"sensor-ingest/internal/models"
	"sensor-ingest/internal/repository"

	"go.uber.org/zap"
)

// AlertLogStore 报警记录查询与解决
type AlertLogStore interface {
	ListAlertLogs(ctx context.Context, filters repository.AlertLogFilters, page, size int) ([]*models.AlertLog, int, error)
	ResolveAlertLog(ctx context.Context, id int64, resolvedBy string) error
}

// AlertLogHandler 报警记录 Handler
type AlertLogHandler struct {
	logs   AlertLogStore
	logger *zap.Logger
}

// NewAlertLogHandler 创建报警记录 Handler
func NewAlertLogHandler(logs AlertLogStore, logger *zap.Logger) *AlertLogHandler {
	return &AlertLogHandler{
		logs:   logs,
		logger: logger,
	}
}

// alertLogPage 列表响应
type alertLogPage struct {
	List  []*models.AlertLog `json:"list"`
	Total int                `json:"total"`
}

// List 查询报警记录列表
func (h *AlertLogHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := repository.AlertLogFilters{}
	if deviceID := strings.TrimSpace(r.URL.Query().Get("deviceId")); deviceID != "" {
		filters.DeviceID = &deviceID
	}
	if sensorID := strings.TrimSpace(r.URL.Query().Get("sensorId")); sensorID != "" {
		filters.SensorID = &sensorID
	}
	if resolvedStr := strings.TrimSpace(r.URL.Query().Get("resolved")); resolvedStr != "" {
		resolved := resolvedStr == "1" || resolvedStr == "true"
		filters.IsResolved = &resolved
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	pageSize := parseInt(r.URL.Query().Get("pageSize"), 20)
	if pageSize > 100 {
		pageSize = 100
	}

	logs, total, err := h.logs.ListAlertLogs(ctx, filters, page, pageSize)
	if err != nil {
		h.logger.Error("ListAlertLogs failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(alertLogPage{List: logs, Total: total}))
}

// Resolve 标记报警已解决（重复提交幂等）
func (h *AlertLogHandler) Resolve(w http.ResponseWriter, r *http.Request, idStr string) {
	ctx := r.Context()

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid alert log id"))
		return
	}

	resolvedBy := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if resolvedBy == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user ID is required"))
		return
	}

	if err := h.logs.ResolveAlertLog(ctx, id, resolvedBy); err != nil {
		h.logger.Error("ResolveAlertLog failed",
			zap.Int64("alert_log_id", id),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(true))
}
