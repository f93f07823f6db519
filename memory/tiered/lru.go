package tiered

import (
	"container/list"
	"sync"
)

// lruQueue 晋升顺序队列，队首为最近晋升，队尾为淘汰候选
type lruQueue struct {
	mu    sync.Mutex
	order *list.List
	index map[string]*list.Element
}

func newLRUQueue() *lruQueue {
	return &lruQueue{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// pushFront 将 key 放到队首，已存在则移动
func (q *lruQueue) pushFront(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if el, ok := q.index[key]; ok {
		q.order.MoveToFront(el)
		return
	}
	q.index[key] = q.order.PushFront(key)
}

// back 返回队尾 key
func (q *lruQueue) back() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	el := q.order.Back()
	if el == nil {
		return "", false
	}
	return el.Value.(string), true
}

func (q *lruQueue) remove(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	el, ok := q.index[key]
	if !ok {
		return false
	}
	q.order.Remove(el)
	delete(q.index, key)
	return true
}

// keys 返回从队首到队尾的 key 快照
func (q *lruQueue) keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]string, 0, q.order.Len())
	for el := q.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(string))
	}
	return out
}

func (q *lruQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.order.Len()
}
