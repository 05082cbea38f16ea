package models

import "time"

// SensorReport ESP32 设备上报的一批传感器数据
type SensorReport struct {
	Type       string       `json:"type,omitempty"`
	MacAddress string       `json:"macAddress"`
	Timestamp  *time.Time   `json:"timestamp,omitempty"`
	Sensors    []SensorItem `json:"sensors"`
}

// SensorItem 单个通道的读数
type SensorItem struct {
	SensorCode string   `json:"sensorCode"`
	Value      *float64 `json:"value,omitempty"`
	Unit       string   `json:"unit,omitempty"`
}

// ItemOutcome 单个条目的处理结果
type ItemOutcome string

const (
	ItemSaved   ItemOutcome = "saved"   // 样本已落库
	ItemSkipped ItemOutcome = "skipped" // 通道不存在或未启用，静默跳过
	ItemFailed  ItemOutcome = "failed"  // 处理过程中出错，已记录日志
)

// ItemResult 单个条目的处理结果（含失败原因，便于测试和诊断）
type ItemResult struct {
	SensorCode string
	Outcome    ItemOutcome
	Err        error
}

// ReportResult 一次上报的整体处理结果
// Accepted=false 仅表示设备无法识别；条目级失败不影响整体接受
type ReportResult struct {
	Accepted bool
	Items    []ItemResult
}
