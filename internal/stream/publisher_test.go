package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/STARTUPinnovator/smartbin/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*redis.Client, *Publisher) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := NewPublisher(client, "bin:telemetry:stream", zap.NewNop())
	return client, p
}

func TestPublishEvent_AppendsToStream(t *testing.T) {
	client, p := setupTestRedis(t)
	ctx := context.Background()

	event := domain.TelemetryEvent{
		SequenceID: 42,
		BinID:      "BIN-007",
		FillLevel:  87,
		StatusMsg:  "Full",
		Lat:        12.5,
		Lon:        77.6,
		RecordedAt: time.Unix(1700000000, 0).UTC(),
	}

	require.NoError(t, p.PublishEvent(ctx, event))

	msgs, err := client.XRange(ctx, "bin:telemetry:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	raw, ok := msgs[0].Values["data"].(string)
	require.True(t, ok)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.Equal(t, "BIN-007", payload["bin_id"])
	assert.Equal(t, 87.0, payload["fill_percentage"])
	assert.Equal(t, "Full", payload["status_msg"])
	assert.Equal(t, 42.0, payload["sequence_id"])
}

func TestPublishEvent_PreservesOrder(t *testing.T) {
	client, p := setupTestRedis(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, p.PublishEvent(ctx, domain.TelemetryEvent{
			SequenceID: int64(i),
			BinID:      "BIN-001",
			FillLevel:  i * 10,
			RecordedAt: time.Now(),
		}))
	}

	msgs, err := client.XRange(ctx, "bin:telemetry:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	for i, msg := range msgs {
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Values["data"].(string)), &payload))
		assert.Equal(t, float64(i+1), payload["sequence_id"])
	}
}

func TestPublishEvent_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	p := NewPublisher(client, "bin:telemetry:stream", zap.NewNop())

	mr.Close()

	err := p.PublishEvent(context.Background(), domain.TelemetryEvent{BinID: "BIN-001"})
	assert.Error(t, err)
}
