package stream

import (
	"context"
	"fmt"

	rediscommon "github.com/STARTUPinnovator/smartbin/internal/common/redis"
	"github.com/STARTUPinnovator/smartbin/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher 将已持久化的遥测事件发布到 Redis Streams
// 供下游管道服务（聚合、报警等）按消费者组消费；发布失败只记日志，
// 不影响接入调用方（事件已落库，下游可从数据库补数）
type Publisher struct {
	redisClient *redis.Client
	stream      string
	logger      *zap.Logger
}

func NewPublisher(redisClient *redis.Client, stream string, logger *zap.Logger) *Publisher {
	return &Publisher{
		redisClient: redisClient,
		stream:      stream,
		logger:      logger,
	}
}

// PublishEvent 发布单条遥测事件（JSON 载荷）
func (p *Publisher) PublishEvent(ctx context.Context, event domain.TelemetryEvent) error {
	streamID, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, p.stream, map[string]interface{}{
		"sequence_id":     event.SequenceID,
		"bin_id":          event.BinID,
		"fill_percentage": event.FillLevel,
		"status_msg":      event.StatusMsg,
		"lat":             event.Lat,
		"lon":             event.Lon,
		"recorded_at":     event.RecordedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("Published telemetry to Redis Streams",
		zap.String("bin_id", event.BinID),
		zap.String("stream", p.stream),
		zap.String("stream_id", streamID),
	)
	return nil
}
