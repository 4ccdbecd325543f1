package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/STARTUPinnovator/smartbin/internal/domain"
)

// MemoryBinsRepo supports local development and tests when DB is disabled.
type MemoryBinsRepo struct {
	mu   sync.RWMutex
	bins map[string]domain.Bin
}

func NewMemoryBinsRepo() *MemoryBinsRepo {
	return &MemoryBinsRepo{
		bins: map[string]domain.Bin{},
	}
}

var _ BinsRepo = (*MemoryBinsRepo)(nil)

func (r *MemoryBinsRepo) UpsertBin(_ context.Context, bin domain.Bin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bins[bin.ID]; ok {
		// created_at 首次注册后不变
		bin.CreatedAt = existing.CreatedAt
	} else if bin.CreatedAt.IsZero() {
		bin.CreatedAt = time.Now().UTC()
	}
	r.bins[bin.ID] = bin
	return nil
}

func (r *MemoryBinsRepo) GetBin(_ context.Context, id string) (*domain.Bin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bins[id]
	if !ok {
		return nil, fmt.Errorf("bin not found: %s", id)
	}
	return &b, nil
}

func (r *MemoryBinsRepo) ListBins(_ context.Context) ([]domain.Bin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Bin, 0, len(r.bins))
	for _, b := range r.bins {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID < all[j].ID
	})
	return all, nil
}
