package repository

import (
	"context"
	"sync"

	"github.com/STARTUPinnovator/smartbin/internal/domain"
)

// MemoryTelemetryRepo in-memory append-only log for DB-disabled mode and tests.
type MemoryTelemetryRepo struct {
	mu     sync.RWMutex
	nextID int64
	events []domain.TelemetryEvent

	// FailAppend 测试钩子：模拟存储故障
	FailAppend error
}

func NewMemoryTelemetryRepo() *MemoryTelemetryRepo {
	return &MemoryTelemetryRepo{nextID: 1}
}

var _ TelemetryRepo = (*MemoryTelemetryRepo)(nil)

func (r *MemoryTelemetryRepo) AppendTelemetry(_ context.Context, event domain.TelemetryEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAppend != nil {
		return 0, domain.NewStorageError("append telemetry", r.FailAppend)
	}

	event.SequenceID = r.nextID
	r.nextID++
	r.events = append(r.events, event)
	return event.SequenceID, nil
}

func (r *MemoryTelemetryRepo) ListByBin(_ context.Context, binID string, limit int) ([]domain.TelemetryEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.TelemetryEvent{}
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].BinID == binID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r *MemoryTelemetryRepo) LatestByBin(_ context.Context) (map[string]domain.TelemetryEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := map[string]domain.TelemetryEvent{}
	for _, e := range r.events {
		latest[e.BinID] = e
	}
	return latest, nil
}

// Len 当前日志长度（测试用）
func (r *MemoryTelemetryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
