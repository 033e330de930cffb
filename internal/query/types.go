package query

import (
	"time"

	"github.com/google/uuid"
)

// TradeResponse is one executed trade as served to API consumers.
// Prices are decimal strings, same convention as the wire formats.
type TradeResponse struct {
	FillID     uuid.UUID `json:"fill_id"`
	Instrument string    `json:"instrument"`
	BidOrderID uint64    `json:"bid_order_id"`
	BidPrice   string    `json:"bid_price"`
	AskOrderID uint64    `json:"ask_order_id"`
	AskPrice   string    `json:"ask_price"`
	Quantity   uint64    `json:"quantity"`
	EngineSeq  uint64    `json:"engine_seq"`
	Timestamp  time.Time `json:"timestamp"`
}
