package book

import "container/list"

// orderEntry locates a resting order: the order itself plus its element in
// its price level's FIFO queue, so cancellation never scans a queue.
type orderEntry struct {
	order *Order
	elem  *list.Element
}

// orderIndex maps order IDs to their current location. It holds an entry
// for an ID exactly while that order rests in some price level. The level
// queue owns the order's storage, not the index.
type orderIndex struct {
	entries map[OrderID]orderEntry
}

func newOrderIndex() *orderIndex {
	return &orderIndex{entries: make(map[OrderID]orderEntry)}
}

func (idx *orderIndex) contains(id OrderID) bool {
	_, ok := idx.entries[id]
	return ok
}

func (idx *orderIndex) lookup(id OrderID) (orderEntry, bool) {
	entry, ok := idx.entries[id]
	return entry, ok
}

func (idx *orderIndex) add(order *Order, elem *list.Element) {
	idx.entries[order.ID()] = orderEntry{order: order, elem: elem}
}

func (idx *orderIndex) remove(id OrderID) {
	delete(idx.entries, id)
}

func (idx *orderIndex) size() int {
	return len(idx.entries)
}
