package book

import (
	"container/list"
	"sort"
)

// priceLevel is one price on one side of the book: a FIFO queue of the
// orders resting at that price, in arrival order. A level exists only while
// its queue is non-empty.
type priceLevel struct {
	price Price
	queue *list.List // of *Order, oldest at the front
}

func newPriceLevel(price Price) *priceLevel {
	return &priceLevel{price: price, queue: list.New()}
}

// totalQuantity sums the remaining quantity of every order at this level.
func (pl *priceLevel) totalQuantity() Quantity {
	var total Quantity
	for e := pl.queue.Front(); e != nil; e = e.Next() {
		total += e.Value.(*Order).RemainingQuantity()
	}
	return total
}

// ladder holds one side's price levels in priority order, best first:
// bids descending (best = highest), asks ascending (best = lowest).
// Price keys are unique; empty levels are removed immediately so best()
// is always a single slice lookup.
type ladder struct {
	descending bool
	levels     []*priceLevel
	byPrice    map[Price]*priceLevel
}

func newLadder(descending bool) *ladder {
	return &ladder{
		descending: descending,
		byPrice:    make(map[Price]*priceLevel),
	}
}

func (l *ladder) empty() bool { return len(l.levels) == 0 }
func (l *ladder) depth() int  { return len(l.levels) }

// best returns the top-priority level, or nil when the side is empty.
func (l *ladder) best() *priceLevel {
	if len(l.levels) == 0 {
		return nil
	}
	return l.levels[0]
}

func (l *ladder) get(price Price) *priceLevel {
	return l.byPrice[price]
}

// insertionPoint returns the index where price belongs in priority order.
func (l *ladder) insertionPoint(price Price) int {
	if l.descending {
		return sort.Search(len(l.levels), func(i int) bool {
			return l.levels[i].price <= price
		})
	}
	return sort.Search(len(l.levels), func(i int) bool {
		return l.levels[i].price >= price
	})
}

// upsert returns the level for price, creating it in sorted position when
// absent.
func (l *ladder) upsert(price Price) *priceLevel {
	if lvl, ok := l.byPrice[price]; ok {
		return lvl
	}
	lvl := newPriceLevel(price)
	i := l.insertionPoint(price)
	l.levels = append(l.levels, nil)
	copy(l.levels[i+1:], l.levels[i:])
	l.levels[i] = lvl
	l.byPrice[price] = lvl
	return lvl
}

// remove drops the level for price. The caller only removes empty levels.
func (l *ladder) remove(price Price) {
	lvl, ok := l.byPrice[price]
	if !ok {
		return
	}
	i := l.insertionPoint(price)
	// insertionPoint lands on the level itself since the price is present.
	for i < len(l.levels) && l.levels[i] != lvl {
		i++
	}
	if i < len(l.levels) {
		l.levels = append(l.levels[:i], l.levels[i+1:]...)
	}
	delete(l.byPrice, price)
}
