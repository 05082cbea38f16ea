package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"sensor-ingest/internal/models"

	"go.uber.org/zap"
)

// 历史查询时间参数格式（与设备管理端约定一致）
const historyTimeLayout = "2006-01-02 15:04:05"

// Ingestor 采集管道入口
type Ingestor interface {
	ProcessReport(ctx context.Context, report *models.SensorReport) (*models.ReportResult, error)
}

// RealtimeGetter 实时值读取入口
type RealtimeGetter interface {
	GetRealtimeValue(ctx context.Context, deviceID, sensorCode string) (*models.RealtimeValue, error)
}

// HistoryLister 历史样本查询入口
type HistoryLister interface {
	ListSamples(ctx context.Context, deviceID, sensorID string, start, end time.Time) ([]*models.SensorSample, error)
}

// SensorHandler 传感器数据上报、实时读取与历史查询 Handler
type SensorHandler struct {
	ingest   Ingestor
	realtime RealtimeGetter
	history  HistoryLister
	logger   *zap.Logger
}

// NewSensorHandler 创建传感器 Handler
func NewSensorHandler(ingest Ingestor, realtime RealtimeGetter, history HistoryLister, logger *zap.Logger) *SensorHandler {
	return &SensorHandler{
		ingest:   ingest,
		realtime: realtime,
		history:  history,
		logger:   logger,
	}
}

// Report ESP32 传感器数据上报
// 响应的 data 是接受标志：false 仅表示设备无法识别；
// 条目级跳过/失败对上报方不可见
func (h *SensorHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var report models.SensorReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		h.logger.Warn("Invalid sensor report payload", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, Fail("invalid report payload"))
		return
	}

	result, err := h.ingest.ProcessReport(ctx, &report)
	if err != nil {
		h.logger.Error("ProcessReport failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(result.Accepted))
}

// Realtime 读取通道实时值（缓存优先，未命中回源最新样本）
func (h *SensorHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID := strings.TrimSpace(r.URL.Query().Get("deviceId"))
	sensorCode := strings.TrimSpace(r.URL.Query().Get("sensorCode"))
	if deviceID == "" || sensorCode == "" {
		writeJSON(w, http.StatusBadRequest, Fail("deviceId and sensorCode are required"))
		return
	}

	value, err := h.realtime.GetRealtimeValue(ctx, deviceID, sensorCode)
	if err != nil {
		h.logger.Error("GetRealtimeValue failed",
			zap.String("device_id", deviceID),
			zap.String("sensor_code", sensorCode),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}
	if value == nil {
		writeJSON(w, http.StatusOK, Fail("no data for sensor"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(value))
}

// History 查询通道历史样本（时间窗过滤，倒序，最多 1000 条）
func (h *SensorHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID := strings.TrimSpace(r.URL.Query().Get("deviceId"))
	sensorID := strings.TrimSpace(r.URL.Query().Get("sensorId"))
	if deviceID == "" || sensorID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("deviceId and sensorId are required"))
		return
	}

	start, err := time.Parse(historyTimeLayout, r.URL.Query().Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid start time, expected yyyy-MM-dd HH:mm:ss"))
		return
	}
	end, err := time.Parse(historyTimeLayout, r.URL.Query().Get("end"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid end time, expected yyyy-MM-dd HH:mm:ss"))
		return
	}

	samples, err := h.history.ListSamples(ctx, deviceID, sensorID, start, end)
	if err != nil {
		h.logger.Error("ListSamples failed",
			zap.String("device_id", deviceID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(samples))
}
