package domain

import "time"

// 未注册节点/缺省字段的占位值（与硬件端固件约定保持一致）
const (
	DefaultBinID      = "BIN-001"
	DefaultSupervisor = "Field Officer"
	DefaultStatusMsg  = "Monitoring"
)

// Bin 垃圾桶节点领域模型（对应 bins 表）
// id 由设备或运维人员分配，注册后不可变
type Bin struct {
	ID         string    `db:"id"`         // VARCHAR(20), PK
	Supervisor string    `db:"supervisor"` // VARCHAR(100)
	Lat        float64   `db:"lat"`
	Lon        float64   `db:"lon"`
	CreatedAt  time.Time `db:"created_at"` // TIMESTAMPTZ
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (b *Bin) ToJSON() map[string]any {
	return map[string]any{
		"id":         b.ID,
		"supervisor": b.Supervisor,
		"lat":        b.Lat,
		"lon":        b.Lon,
	}
}

// Snapshot 节点最近一次上报的状态快照（仅存在于内存注册表中）
type Snapshot struct {
	FillLevel  int       `json:"fill_percentage"`
	StatusMsg  string    `json:"status_msg"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	RecordedAt time.Time `json:"recorded_at"`
}

// BinStatus 注册表对外视图：静态元数据 + 最近快照
// LastSeen 在节点首次上报前为 nil
type BinStatus struct {
	Bin      Bin       `json:"bin"`
	LastSeen *Snapshot `json:"last_seen,omitempty"`
}
