package book

import "sync"

// LevelInfo is one aggregated price level: the price and the sum of every
// resting order's remaining quantity at that price.
type LevelInfo struct {
	Price    Price
	Quantity Quantity
}

// Orderbook is a single instrument's limit order book with price-time
// priority matching.
//
// Every operation runs under one book-wide mutex. The matching loop is a
// multi-step read-modify-write across both sides at once, and its
// intermediate states (a level mid-drain, an order between fill and
// removal) are invalid if observed, so a single exclusion domain covers
// each whole request, reads included. Per-structure locking cannot work
// here.
type Orderbook struct {
	mu     sync.Mutex
	bids   *ladder
	asks   *ladder
	orders *orderIndex
}

// New returns an empty book.
func New() *Orderbook {
	return &Orderbook{
		bids:   newLadder(true),
		asks:   newLadder(false),
		orders: newOrderIndex(),
	}
}

// AddOrder places an order and returns the trades it produced, possibly
// none. The order is rejected (nil trades, no state change) when its ID
// already rests in the book, when its quantity is zero, or when it is
// FillAndKill and nothing on the opposite side can cross its limit right
// now. Otherwise the order joins the tail of its price level, the matching
// loop runs, and any FillAndKill remainder is discarded before returning.
func (b *Orderbook) AddOrder(order *Order) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addOrder(order)
}

func (b *Orderbook) addOrder(order *Order) []Trade {
	if b.orders.contains(order.ID()) {
		return nil
	}
	if order.RemainingQuantity() == 0 {
		// A zero-quantity order would rest already "filled".
		return nil
	}
	if order.Type() == FillAndKill && !b.canMatch(order.Side(), order.Price()) {
		return nil
	}

	side := b.sideOf(order.Side())
	lvl := side.upsert(order.Price())
	elem := lvl.queue.PushBack(order)
	b.orders.add(order, elem)

	trades := b.matchOrders()

	// FillAndKill never rests: whatever the loop left unmatched is
	// discarded now, whichever side it sits on.
	if order.Type() == FillAndKill && !order.IsFilled() {
		b.cancelOrder(order.ID())
	}

	return trades
}

// matchOrders crosses the book until the best bid no longer meets the best
// ask. Heads of the two best levels match oldest-first, for the smaller of
// the two remainders; both orders are filled by that amount and one trade
// is emitted carrying each side's own price. Filled orders leave their
// queue and the index at once, and a level is dropped the moment its queue
// empties so best() stays a front lookup.
func (b *Orderbook) matchOrders() []Trade {
	var trades []Trade

	for {
		bidLvl := b.bids.best()
		askLvl := b.asks.best()
		if bidLvl == nil || askLvl == nil || bidLvl.price < askLvl.price {
			break
		}

		for bidLvl.queue.Len() > 0 && askLvl.queue.Len() > 0 {
			bidElem := bidLvl.queue.Front()
			askElem := askLvl.queue.Front()
			bid := bidElem.Value.(*Order)
			ask := askElem.Value.(*Order)

			quantity := min(bid.RemainingQuantity(), ask.RemainingQuantity())
			bid.Fill(quantity)
			ask.Fill(quantity)

			if bid.IsFilled() {
				bidLvl.queue.Remove(bidElem)
				b.orders.remove(bid.ID())
			}
			if ask.IsFilled() {
				askLvl.queue.Remove(askElem)
				b.orders.remove(ask.ID())
			}

			trades = append(trades, Trade{
				Bid: TradeSide{OrderID: bid.ID(), Price: bid.Price(), Quantity: quantity},
				Ask: TradeSide{OrderID: ask.ID(), Price: ask.Price(), Quantity: quantity},
			})
		}

		if bidLvl.queue.Len() == 0 {
			b.bids.remove(bidLvl.price)
		}
		if askLvl.queue.Len() == 0 {
			b.asks.remove(askLvl.price)
		}
	}

	return trades
}

// canMatch reports whether an order at price on side would cross the
// opposite side's best level right now.
func (b *Orderbook) canMatch(side Side, price Price) bool {
	if side == SideBuy {
		best := b.asks.best()
		return best != nil && price >= best.price
	}
	best := b.bids.best()
	return best != nil && price <= best.price
}

// CancelOrder removes a resting order. Unknown IDs are a no-op, so
// cancellation is idempotent. No trades are produced.
func (b *Orderbook) CancelOrder(id OrderID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelOrder(id)
}

func (b *Orderbook) cancelOrder(id OrderID) {
	entry, ok := b.orders.lookup(id)
	if !ok {
		return
	}
	b.orders.remove(id)

	side := b.sideOf(entry.order.Side())
	lvl := side.get(entry.order.Price())
	lvl.queue.Remove(entry.elem)
	if lvl.queue.Len() == 0 {
		side.remove(lvl.price)
	}
}

// ModifyOrder is cancel-then-reinsert under one lock: the order keeps its
// ID and type but takes the new side, price, and quantity, re-entering time
// priority at the back of its new level, possibly matching
// immediately. Unknown IDs are a no-op returning nil.
func (b *Orderbook) ModifyOrder(id OrderID, side Side, price Price, quantity Quantity) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.orders.lookup(id)
	if !ok {
		return nil
	}
	otype := entry.order.Type()
	b.cancelOrder(id)
	return b.addOrder(NewOrder(otype, id, side, price, quantity))
}

// Size is the number of orders currently resting in the book.
func (b *Orderbook) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orders.size()
}

// Contains reports whether an order with the given ID is resting.
func (b *Orderbook) Contains(id OrderID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orders.contains(id)
}

// Levels aggregates the book into (price, total remaining quantity) rows,
// bids best-first descending and asks best-first ascending. Pure read.
func (b *Orderbook) Levels() (bids, asks []LevelInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return levelInfos(b.bids), levelInfos(b.asks)
}

func levelInfos(l *ladder) []LevelInfo {
	infos := make([]LevelInfo, 0, len(l.levels))
	for _, lvl := range l.levels {
		infos = append(infos, LevelInfo{Price: lvl.price, Quantity: lvl.totalQuantity()})
	}
	return infos
}

func (b *Orderbook) sideOf(s Side) *ladder {
	if s == SideBuy {
		return b.bids
	}
	return b.asks
}
