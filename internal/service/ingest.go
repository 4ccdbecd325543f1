package service

import (
	"context"
	"time"

	"github.com/STARTUPinnovator/smartbin/internal/domain"
	"github.com/STARTUPinnovator/smartbin/internal/hub"
	"github.com/STARTUPinnovator/smartbin/internal/registry"
	"github.com/STARTUPinnovator/smartbin/internal/repository"

	"go.uber.org/zap"
)

// EventPublisher 下游数据面发布接口（Redis Streams 实现；测试用 fake）
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.TelemetryEvent) error
}

// Report 一次硬件上报（字段缺省时套用占位值）
type Report struct {
	BinID     string
	FillLevel int
	StatusMsg string
	Lat       float64
	Lon       float64
}

// Registration 节点注册请求
type Registration struct {
	ID         string
	Supervisor string
	Lat        float64
	Lon        float64
}

// Accepted 接入成功的结果：存储层分配的序列号 + 服务端接收时间
type Accepted struct {
	SequenceID int64
	ServerTime time.Time
}

// Ingestor 遥测接入管道：校验 → 落库（持久化门槛）→ 更新注册表 → 广播
// 落库是不可回退点：落库失败则什么都不发生；落库成功后广播不再受取消影响
type Ingestor struct {
	bins      repository.BinsRepo
	telemetry repository.TelemetryRepo
	registry  *registry.Cache
	hub       *hub.Hub
	publisher EventPublisher // 可为 nil（Redis 关闭时）
	logger    *zap.Logger
}

func NewIngestor(
	bins repository.BinsRepo,
	telemetry repository.TelemetryRepo,
	reg *registry.Cache,
	h *hub.Hub,
	publisher EventPublisher,
	logger *zap.Logger,
) *Ingestor {
	return &Ingestor{
		bins:      bins,
		telemetry: telemetry,
		registry:  reg,
		hub:       h,
		publisher: publisher,
		logger:    logger,
	}
}

// Ingest 处理一次上报；每次调用至多产生一条持久记录和一次广播
func (s *Ingestor) Ingest(ctx context.Context, report Report) (*Accepted, error) {
	event := s.normalize(report)

	// 取消只在落库前生效
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. 持久化门槛：失败则中止，不更新缓存、不广播
	seq, err := s.telemetry.AppendTelemetry(ctx, event)
	if err != nil {
		s.logger.Error("Telemetry append failed",
			zap.String("bin_id", event.BinID),
			zap.Error(err),
		)
		return nil, err
	}
	event.SequenceID = seq

	// 2. 刷新注册表快照（未注册节点懒加入）
	s.registry.RecordSighting(event.BinID, event.Snapshot())

	// 3. 广播给所有在线观察者（绝不阻塞、绝不失败）
	s.hub.Publish(event.Update())

	// 4. 发布到下游数据面；失败只降级记录（事件已落库）
	if s.publisher != nil {
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			s.logger.Warn("Stream publish failed",
				zap.String("bin_id", event.BinID),
				zap.Int64("sequence_id", seq),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Telemetry accepted",
		zap.String("bin_id", event.BinID),
		zap.Int64("sequence_id", seq),
		zap.Int("fill_percentage", event.FillLevel),
	)

	return &Accepted{SequenceID: seq, ServerTime: event.RecordedAt}, nil
}

// normalize 填充缺省字段并盖上服务端时间戳
func (s *Ingestor) normalize(report Report) domain.TelemetryEvent {
	if report.BinID == "" {
		// 固件早期版本不带 bin_id；保留占位值行为，但告警提示
		s.logger.Warn("Report without bin_id, using placeholder",
			zap.String("placeholder", domain.DefaultBinID),
		)
		report.BinID = domain.DefaultBinID
	}
	if report.StatusMsg == "" {
		report.StatusMsg = domain.DefaultStatusMsg
	}

	return domain.TelemetryEvent{
		BinID:      report.BinID,
		FillLevel:  report.FillLevel,
		StatusMsg:  report.StatusMsg,
		Lat:        report.Lat,
		Lon:        report.Lon,
		RecordedAt: time.Now().UTC(),
	}
}

// Register 注册/更新节点元数据（whole-record 替换）；不触碰注册表中的快照
func (s *Ingestor) Register(ctx context.Context, reg Registration) error {
	if reg.ID == "" {
		return domain.NewValidationError("id", "Missing ID")
	}
	if reg.Supervisor == "" {
		reg.Supervisor = domain.DefaultSupervisor
	}

	bin := domain.Bin{
		ID:         reg.ID,
		Supervisor: reg.Supervisor,
		Lat:        reg.Lat,
		Lon:        reg.Lon,
	}
	if err := s.bins.UpsertBin(ctx, bin); err != nil {
		return err
	}

	// created_at 由存储层分配；读回失败时退回请求字段
	if stored, err := s.bins.GetBin(ctx, reg.ID); err == nil {
		bin = *stored
	}
	s.registry.UpsertMetadata(bin)

	s.logger.Info("Bin registered",
		zap.String("bin_id", bin.ID),
		zap.String("supervisor", bin.Supervisor),
	)
	return nil
}

// ListBins 节点元数据列表（仪表盘轮询用）
func (s *Ingestor) ListBins(ctx context.Context) ([]domain.Bin, error) {
	return s.bins.ListBins(ctx)
}

// History 某节点最近的遥测历史
func (s *Ingestor) History(ctx context.Context, binID string, limit int) ([]domain.TelemetryEvent, error) {
	return s.telemetry.ListByBin(ctx, binID, limit)
}
