package book

// TradeSide records one order's participation in a match: which order, at
// that order's own limit price, for the matched quantity.
type TradeSide struct {
	OrderID  OrderID
	Price    Price
	Quantity Quantity
}

// Trade is one match between a bid and an ask. Each side carries its own
// order's price: the maker keeps the price it quoted, the engine never
// computes a single clearing price. Trades are created only inside the
// matching loop and never mutated afterwards.
type Trade struct {
	Bid TradeSide
	Ask TradeSide
}

// Quantity returns the matched quantity (identical on both sides).
func (t Trade) Quantity() Quantity { return t.Bid.Quantity }
