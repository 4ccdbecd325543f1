package consumer

import (
	"testing"

	"github.com/STARTUPinnovator/smartbin/internal/config"
	"github.com/STARTUPinnovator/smartbin/internal/hub"
	"github.com/STARTUPinnovator/smartbin/internal/registry"
	"github.com/STARTUPinnovator/smartbin/internal/repository"
	"github.com/STARTUPinnovator/smartbin/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConsumer(t *testing.T) (*MQTTConsumer, *repository.MemoryTelemetryRepo, *registry.Cache) {
	t.Helper()
	logger := zap.NewNop()
	bins := repository.NewMemoryBinsRepo()
	telemetry := repository.NewMemoryTelemetryRepo()
	reg := registry.NewCache()
	broadcast := hub.New(16, logger)
	ingest := service.NewIngestor(bins, telemetry, reg, broadcast, nil, logger)

	cfg := config.Load()
	// mqttClient 只在 Start/Stop 时使用；handleMessage 可直接测试
	c := NewMQTTConsumer(cfg, nil, ingest, logger)
	return c, telemetry, reg
}

func TestBinIDFromTopic(t *testing.T) {
	tests := []struct {
		topic   string
		want    string
		wantErr bool
	}{
		{"bins/BIN-007/telemetry", "BIN-007", false},
		{"bins/BIN-007/config", "", true},
		{"bins//telemetry", "", true},
		{"radar/BIN-007/telemetry", "", true},
		{"bins/BIN-007", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := binIDFromTopic(tt.topic)
		if tt.wantErr {
			assert.Error(t, err, "topic %q", tt.topic)
		} else {
			require.NoError(t, err, "topic %q", tt.topic)
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestHandleMessage_IngestsUplink(t *testing.T) {
	c, telemetry, reg := newTestConsumer(t)

	payload := []byte(`{"fill_percentage":87,"status_msg":"Full","lat":12.5,"lon":77.6}`)
	require.NoError(t, c.handleMessage("bins/BIN-007/telemetry", payload))

	assert.Equal(t, 1, telemetry.Len())
	st, ok := reg.Get("BIN-007")
	require.True(t, ok)
	assert.Equal(t, 87, st.LastSeen.FillLevel)
	assert.Equal(t, "Full", st.LastSeen.StatusMsg)
}

func TestHandleMessage_InvalidTopic(t *testing.T) {
	c, telemetry, _ := newTestConsumer(t)

	err := c.handleMessage("weird/topic", []byte(`{}`))
	assert.Error(t, err)
	assert.Equal(t, 0, telemetry.Len())
}

func TestHandleMessage_InvalidPayload(t *testing.T) {
	c, telemetry, _ := newTestConsumer(t)

	err := c.handleMessage("bins/BIN-001/telemetry", []byte(`not json`))
	assert.Error(t, err)
	assert.Equal(t, 0, telemetry.Len())
}

func TestHandleMessage_EmptyPayloadUsesDefaults(t *testing.T) {
	c, _, reg := newTestConsumer(t)

	// 载荷为空对象：bin_id 来自主题，其余字段套用缺省值
	require.NoError(t, c.handleMessage("bins/BIN-002/telemetry", []byte(`{}`)))

	st, ok := reg.Get("BIN-002")
	require.True(t, ok)
	assert.Equal(t, 0, st.LastSeen.FillLevel)
	assert.Equal(t, "Monitoring", st.LastSeen.StatusMsg)
}
