package tiered

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/BaSui01/memflow/types"
)

// defaultShardCount 热层分片数
const defaultShardCount = 32

// hotItem 热层条目与其访问计数
type hotItem struct {
	entry types.MemoryEntry
	hits  *atomic.Uint64
}

type hotShard struct {
	mu    sync.RWMutex
	items map[string]hotItem
}

// hotIndex 分片并发索引，不同 key 只在同一分片内互相竞争
type hotIndex struct {
	shards []*hotShard
	size   atomic.Int64
}

func newHotIndex(shardCount int) *hotIndex {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	h := &hotIndex{shards: make([]*hotShard, shardCount)}
	for i := range h.shards {
		h.shards[i] = &hotShard{items: make(map[string]hotItem)}
	}
	return h
}

func (h *hotIndex) shardFor(key string) *hotShard {
	f := fnv.New32a()
	_, _ = f.Write([]byte(key))
	return h.shards[f.Sum32()%uint32(len(h.shards))]
}

// touch 读取条目并递增访问计数
func (h *hotIndex) touch(key string) (types.MemoryEntry, bool) {
	s := h.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return types.MemoryEntry{}, false
	}
	item.hits.Add(1)
	return item.entry.Clone(), true
}

func (h *hotIndex) contains(key string) bool {
	s := h.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// put 插入或替换条目；替换时保留访问计数。返回是否为新 key。
func (h *hotIndex) put(entry types.MemoryEntry) bool {
	s := h.shardFor(entry.Key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[entry.Key]; ok {
		item.entry = entry
		s.items[entry.Key] = item
		return false
	}
	s.items[entry.Key] = hotItem{entry: entry, hits: new(atomic.Uint64)}
	h.size.Add(1)
	return true
}

// remove 删除条目，重复删除是无操作
func (h *hotIndex) remove(key string) bool {
	s := h.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	h.size.Add(-1)
	return true
}

func (h *hotIndex) accessCount(key string) uint64 {
	s := h.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, ok := s.items[key]; ok {
		return item.hits.Load()
	}
	return 0
}

func (h *hotIndex) lookup(key string) (types.MemoryEntry, bool) {
	s := h.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return types.MemoryEntry{}, false
	}
	return item.entry.Clone(), true
}

func (h *hotIndex) len() int {
	return int(h.size.Load())
}
