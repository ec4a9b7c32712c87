package server

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// cache remembers the responses to recent expressions. A nil *cache is
// valid and remembers nothing.
type cache struct {
	mu    sync.Mutex
	max   int
	ll    *list.List
	items map[uint64]*list.Element
}

type cached struct {
	key    uint64
	expr   string
	result string
	kind   string
}

func newCache(max int) *cache {
	if max <= 0 {
		return nil
	}
	return &cache{max: max, ll: list.New(), items: make(map[uint64]*list.Element, max)}
}

func (c *cache) get(expr string) (result, kind string, ok bool) {
	if c == nil {
		return "", "", false
	}
	key := xxhash.Sum64String(expr)
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return "", "", false
	}
	ent := el.Value.(*cached)
	if ent.expr != expr {
		// Hash collision.
		return "", "", false
	}
	c.ll.MoveToFront(el)
	return ent.result, ent.kind, true
}

func (c *cache) put(expr, result, kind string) {
	if c == nil {
		return
	}
	key := xxhash.Sum64String(expr)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		*el.Value.(*cached) = cached{key: key, expr: expr, result: result, kind: kind}
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&cached{key: key, expr: expr, result: result, kind: kind})
	for c.ll.Len() > c.max {
		el := c.ll.Back()
		c.ll.Remove(el)
		delete(c.items, el.Value.(*cached).key)
	}
}

func (c *cache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
