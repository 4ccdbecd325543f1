package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/STARTUPinnovator/smartbin/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(queueSize int) *Hub {
	return New(queueSize, zap.NewNop())
}

func recvUpdate(t *testing.T, s *Subscriber) domain.Update {
	t.Helper()
	select {
	case u := <-s.Events():
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
		return domain.Update{}
	}
}

func TestHub_PublishToZeroObservers(t *testing.T) {
	h := newTestHub(0)
	// 不 panic、不阻塞即通过
	h.Publish(domain.Update{BinID: "BIN-001"})
	assert.Equal(t, 0, h.Count())
}

func TestHub_PublishReachesAllObservers(t *testing.T) {
	h := newTestHub(0)
	s1 := h.Subscribe()
	s2 := h.Subscribe()
	s3 := h.Subscribe()
	defer func() {
		s1.Close()
		s2.Close()
		s3.Close()
	}()

	require.Equal(t, 3, h.Count())
	h.Publish(domain.Update{BinID: "BIN-007", FillLevel: 87, StatusMsg: "Full"})

	for _, s := range []*Subscriber{s1, s2, s3} {
		u := recvUpdate(t, s)
		assert.Equal(t, "BIN-007", u.BinID)
		assert.Equal(t, 87, u.FillLevel)
	}
}

func TestHub_PerObserverOrderPreserved(t *testing.T) {
	h := newTestHub(16)
	s := h.Subscribe()
	defer s.Close()

	for i := 1; i <= 10; i++ {
		h.Publish(domain.Update{BinID: "BIN-001", FillLevel: i})
	}

	for i := 1; i <= 10; i++ {
		u := recvUpdate(t, s)
		assert.Equal(t, i, u.FillLevel)
	}
}

func TestHub_DisconnectedObserverDoesNotBlockOthers(t *testing.T) {
	h := newTestHub(0)
	slow := h.Subscribe()
	live := h.Subscribe()
	defer live.Close()

	slow.Close()
	require.Equal(t, 1, h.Count())

	h.Publish(domain.Update{BinID: "BIN-002", FillLevel: 40})

	u := recvUpdate(t, live)
	assert.Equal(t, "BIN-002", u.BinID)
}

func TestHub_SlowObserverDropsOldest(t *testing.T) {
	h := newTestHub(2)
	s := h.Subscribe()
	defer s.Close()

	// 队列容量 2，发布 4 条；最旧的被挤掉，最新的保留
	for i := 1; i <= 4; i++ {
		h.Publish(domain.Update{BinID: "BIN-001", FillLevel: i})
	}

	first := recvUpdate(t, s)
	second := recvUpdate(t, s)
	assert.Equal(t, 3, first.FillLevel)
	assert.Equal(t, 4, second.FillLevel)

	select {
	case u := <-s.Events():
		t.Fatalf("unexpected extra update: %+v", u)
	default:
	}
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	h := newTestHub(0)
	s := h.Subscribe()

	s.Close()
	s.Close()
	assert.Equal(t, 0, h.Count())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}
}

func TestHub_ConcurrentPublishAndChurn(t *testing.T) {
	h := newTestHub(8)

	var wg sync.WaitGroup
	// 并发订阅/退订与发布交织，不应 panic 或死锁
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := h.Subscribe()
				h.Publish(domain.Update{BinID: fmt.Sprintf("BIN-%03d", n), FillLevel: j})
				s.Close()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, h.Count())
}

func TestHub_StopDisconnectsAll(t *testing.T) {
	h := newTestHub(0)
	s1 := h.Subscribe()
	s2 := h.Subscribe()

	h.Stop()

	assert.Equal(t, 0, h.Count())
	for _, s := range []*Subscriber{s1, s2} {
		select {
		case <-s.Done():
		case <-time.After(time.Second):
			t.Fatal("subscriber not released on Stop")
		}
	}

	// 停止后的订阅立即处于断开状态
	s3 := h.Subscribe()
	select {
	case <-s3.Done():
	default:
		t.Fatal("subscribe after Stop should be terminal")
	}
}
