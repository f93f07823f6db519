package tiered

import (
	"sync"
	"time"
)

// =============================================================================
// 📊 统计信息
// =============================================================================

// Stats 缓存统计快照
type Stats struct {
	Hits                uint64 `json:"hits"`
	Misses              uint64 `json:"misses"`
	HotHits             uint64 `json:"hot_hits"`
	WarmHits            uint64 `json:"warm_hits"`
	ColdHits            uint64 `json:"cold_hits"`
	Evictions           uint64 `json:"evictions"`
	HotSize             int    `json:"hot_size"`
	WarmSize            int    `json:"warm_size"`
	Operations          uint64 `json:"operations"`
	AvgHotAccessMicros  uint64 `json:"avg_hot_access_us"`
	AvgWarmAccessMicros uint64 `json:"avg_warm_access_us"`
}

// HitRate 命中率（百分比），无命中也无未命中时为 0
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// statsRecorder 统计累加器，独立于热层与 LRU 的锁
type statsRecorder struct {
	mu sync.Mutex

	hits       uint64
	misses     uint64
	hotHits    uint64
	warmHits   uint64
	coldHits   uint64
	evictions  uint64
	operations uint64

	hotAccessMicros  uint64
	warmAccessMicros uint64
}

func (r *statsRecorder) recordHit(tier CacheTier, elapsed time.Duration) {
	us := uint64(elapsed.Microseconds())

	r.mu.Lock()
	defer r.mu.Unlock()

	r.hits++
	r.operations++
	switch tier {
	case TierHot:
		r.hotHits++
		r.hotAccessMicros += us
	case TierWarm:
		r.warmHits++
		r.warmAccessMicros += us
	case TierCold:
		r.coldHits++
	}
}

func (r *statsRecorder) recordMiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
	r.operations++
}

func (r *statsRecorder) recordOperation() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations++
}

func (r *statsRecorder) recordEviction() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions++
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		Hits:       r.hits,
		Misses:     r.misses,
		HotHits:    r.hotHits,
		WarmHits:   r.warmHits,
		ColdHits:   r.coldHits,
		Evictions:  r.evictions,
		Operations: r.operations,
	}
	if r.hotHits > 0 {
		s.AvgHotAccessMicros = r.hotAccessMicros / r.hotHits
	}
	if r.warmHits > 0 {
		s.AvgWarmAccessMicros = r.warmAccessMicros / r.warmHits
	}
	return s
}

func (r *statsRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hits, r.misses = 0, 0
	r.hotHits, r.warmHits, r.coldHits = 0, 0, 0
	r.evictions, r.operations = 0, 0
	r.hotAccessMicros, r.warmAccessMicros = 0, 0
}
