package book

import "fmt"

// Side is the direction of an order.
type Side int32

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType controls what happens to the unmatched remainder of an order.
type OrderType int32

const (
	// GoodTilCanceled rests in the book until fully matched or canceled.
	GoodTilCanceled OrderType = iota
	// FillAndKill matches whatever it can on arrival; the remainder is
	// discarded, never rested.
	FillAndKill
)

func (t OrderType) String() string {
	switch t {
	case GoodTilCanceled:
		return "gtc"
	case FillAndKill:
		return "fak"
	default:
		return "unknown"
	}
}

// Price is a limit price in integer ticks. Ticks are a sub-currency unit
// (see the tick package) so prices compare exactly; floats never appear
// on this path.
type Price = int64

// Quantity is an order quantity in integer units.
type Quantity = uint64

// OrderID is the caller-supplied unique identifier of an order.
type OrderID = uint64

// Order is the mutable remaining state of a single order. The book is the
// sole authoritative holder; the order index and price levels reference it,
// they never copy it.
type Order struct {
	otype     OrderType
	id        OrderID
	side      Side
	price     Price
	initial   Quantity
	remaining Quantity
}

// NewOrder builds an order with its full quantity remaining.
func NewOrder(otype OrderType, id OrderID, side Side, price Price, quantity Quantity) *Order {
	return &Order{
		otype:     otype,
		id:        id,
		side:      side,
		price:     price,
		initial:   quantity,
		remaining: quantity,
	}
}

func (o *Order) ID() OrderID                 { return o.id }
func (o *Order) Side() Side                  { return o.side }
func (o *Order) Type() OrderType             { return o.otype }
func (o *Order) Price() Price                { return o.price }
func (o *Order) InitialQuantity() Quantity   { return o.initial }
func (o *Order) RemainingQuantity() Quantity { return o.remaining }
func (o *Order) FilledQuantity() Quantity    { return o.initial - o.remaining }

// IsFilled reports whether nothing of the order remains. A filled order is
// removed from every index the moment this becomes true.
func (o *Order) IsFilled() bool { return o.remaining == 0 }

// Fill reduces the remaining quantity. Filling past the remainder means the
// matching loop's min() bound was violated; that is state corruption, so it
// panics rather than clamping.
func (o *Order) Fill(quantity Quantity) {
	if quantity > o.remaining {
		panic(fmt.Sprintf("order %d: fill %d exceeds remaining %d", o.id, quantity, o.remaining))
	}
	o.remaining -= quantity
}
