package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/STARTUPinnovator/smartbin/internal/domain"
	"github.com/STARTUPinnovator/smartbin/internal/repository"
)

// Cache 节点注册表的内存视图：bin id -> 静态元数据 + 最近快照
// 非权威数据，可随时从存储层整体重建；读写都只持锁很短时间
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	bin      domain.Bin
	lastSeen *domain.Snapshot
}

func NewCache() *Cache {
	return &Cache{
		entries: map[string]*entry{},
	}
}

// RecordSighting 覆盖节点的最近快照；未注册节点懒加入（元数据留空）
func (c *Cache) RecordSighting(binID string, snap domain.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[binID]
	if !ok {
		e = &entry{bin: domain.Bin{ID: binID}}
		c.entries[binID] = e
	}
	s := snap
	e.lastSeen = &s
}

// UpsertMetadata 整条替换节点元数据，不触碰 lastSeen 快照
func (c *Cache) UpsertMetadata(bin domain.Bin) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[bin.ID]
	if !ok {
		c.entries[bin.ID] = &entry{bin: bin}
		return
	}
	e.bin = bin
}

// GetAll 返回按 bin id 排序的时点视图（深拷贝，调用方可自由持有）
func (c *Cache) GetAll() []domain.BinStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]domain.BinStatus, 0, len(c.entries))
	for _, e := range c.entries {
		st := domain.BinStatus{Bin: e.bin}
		if e.lastSeen != nil {
			s := *e.lastSeen
			st.LastSeen = &s
		}
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Bin.ID < all[j].Bin.ID
	})
	return all
}

// Get 单节点视图；不存在返回 false
func (c *Cache) Get(binID string) (domain.BinStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[binID]
	if !ok {
		return domain.BinStatus{}, false
	}
	st := domain.BinStatus{Bin: e.bin}
	if e.lastSeen != nil {
		s := *e.lastSeen
		st.LastSeen = &s
	}
	return st, true
}

// Len 当前条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Warm 启动时回放存储层：先元数据，再每节点最近一条遥测
// 遥测回放失败只降级为"快照暂缺"，不算启动错误
func (c *Cache) Warm(ctx context.Context, bins repository.BinsRepo, telemetry repository.TelemetryRepo) error {
	all, err := bins.ListBins(ctx)
	if err != nil {
		return err
	}
	for _, b := range all {
		c.UpsertMetadata(b)
	}

	if telemetry == nil {
		return nil
	}
	latest, err := telemetry.LatestByBin(ctx)
	if err != nil {
		return nil
	}
	for binID, e := range latest {
		c.RecordSighting(binID, e.Snapshot())
	}
	return nil
}
