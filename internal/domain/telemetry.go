package domain

import "time"

// TelemetryEvent 遥测事件领域模型（对应 telemetry 表，append-only）
// SequenceID 由存储层插入时分配，全局单调递增，永不复用
type TelemetryEvent struct {
	SequenceID int64     `db:"id"` // BIGSERIAL
	BinID      string    `db:"bin_id"`
	FillLevel  int       `db:"fill_level"` // 期望 0-100，超范围不拒绝（原样入库）
	StatusMsg  string    `db:"status_msg"`
	Lat        float64   `db:"lat"`
	Lon        float64   `db:"lon"`
	RecordedAt time.Time `db:"timestamp"` // 服务端接收时间（不信任设备时钟）
}

// Snapshot 从遥测事件提取注册表快照
func (e *TelemetryEvent) Snapshot() Snapshot {
	return Snapshot{
		FillLevel:  e.FillLevel,
		StatusMsg:  e.StatusMsg,
		Lat:        e.Lat,
		Lon:        e.Lon,
		RecordedAt: e.RecordedAt,
	}
}

// Update 广播给观察者的实时更新载荷（事件名 "update"）
type Update struct {
	BinID     string  `json:"bin_id"`
	FillLevel int     `json:"fill_percentage"`
	StatusMsg string  `json:"status_msg"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// Update 转换为广播载荷
func (e *TelemetryEvent) Update() Update {
	return Update{
		BinID:     e.BinID,
		FillLevel: e.FillLevel,
		StatusMsg: e.StatusMsg,
		Lat:       e.Lat,
		Lon:       e.Lon,
	}
}
