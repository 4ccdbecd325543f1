package repository

import (
	"context"

	"github.com/STARTUPinnovator/smartbin/internal/domain"
)

// BinsRepo 节点静态元数据仓库
type BinsRepo interface {
	// UpsertBin 插入或整条替换节点元数据（whole-record 语义，不做字段级合并）
	UpsertBin(ctx context.Context, bin domain.Bin) error
	GetBin(ctx context.Context, id string) (*domain.Bin, error)
	ListBins(ctx context.Context) ([]domain.Bin, error)
}

// TelemetryRepo 遥测事件仓库（append-only 日志）
type TelemetryRepo interface {
	// AppendTelemetry 持久化一条遥测事件，返回存储层分配的序列号
	// 事件内容不会导致失败；I/O 失败返回 *domain.StorageError
	AppendTelemetry(ctx context.Context, event domain.TelemetryEvent) (int64, error)
	// ListByBin 按序列号倒序返回某节点最近的遥测历史
	ListByBin(ctx context.Context, binID string, limit int) ([]domain.TelemetryEvent, error)
	// LatestByBin 返回每个节点最近一条遥测事件（用于注册表预热）
	LatestByBin(ctx context.Context) (map[string]domain.TelemetryEvent, error)
}
