package tiered

import "time"

// Observer 缓存事件观察者，所有方法必须是非阻塞的
type Observer interface {
	RecordHit(tier CacheTier, elapsed time.Duration)
	RecordMiss()
	RecordEviction()
	RecordPromotion()
	ObserveBackend(op string, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) RecordHit(CacheTier, time.Duration)          {}
func (noopObserver) RecordMiss()                                 {}
func (noopObserver) RecordEviction()                             {}
func (noopObserver) RecordPromotion()                            {}
func (noopObserver) ObserveBackend(string, time.Duration, error) {}
