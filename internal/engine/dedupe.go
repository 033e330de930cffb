package engine

import (
	"container/list"
	"fmt"

	"LimitBook/internal/event"
)

// deliveryGuard remembers recently applied command deliveries so that
// at-least-once redelivery from JetStream is a no-op instead of a second
// execution. The book's duplicate-ID check only protects orders that
// still rest; a redelivered submit whose order already filled would
// otherwise match and journal again.
//
// Not thread-safe. Only the engine loop touches it.
type deliveryGuard struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List
}

type guardEntry struct {
	key string
}

func newDeliveryGuard(capacity int) *deliveryGuard {
	return &deliveryGuard{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// guardKey identifies one delivery. Commands without a source sequence
// (the HTTP admin path) are not guarded; only sequenced NATS traffic is.
func guardKey(cmd event.Command) (string, bool) {
	seq := cmd.SourceSequence()
	if seq == 0 {
		return "", false
	}
	return fmt.Sprintf("%s:%s:%d", cmd.CommandType(), cmd.Instrument(), seq), true
}

// seen reports whether the key was already applied, promoting it.
func (g *deliveryGuard) seen(key string) bool {
	elem, ok := g.cache[key]
	if ok {
		g.lruList.MoveToFront(elem)
	}
	return ok
}

// mark records an applied delivery, evicting the oldest past capacity.
func (g *deliveryGuard) mark(key string) {
	if elem, ok := g.cache[key]; ok {
		g.lruList.MoveToFront(elem)
		return
	}

	elem := g.lruList.PushFront(&guardEntry{key: key})
	g.cache[key] = elem

	if g.lruList.Len() > g.capacity {
		oldest := g.lruList.Back()
		g.lruList.Remove(oldest)
		delete(g.cache, oldest.Value.(*guardEntry).key)
	}
}

func (g *deliveryGuard) size() int {
	return g.lruList.Len()
}
