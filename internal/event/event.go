// Package event defines the commands consumed by the matching engine
// and the trade events it emits downstream.
package event

import (
	"time"

	"github.com/google/uuid"

	"LimitBook/internal/book"
)

type CommandType string

const (
	CommandSubmitOrder CommandType = "submit_order"
	CommandCancelOrder CommandType = "cancel_order"
	CommandModifyOrder CommandType = "modify_order"
)

// Command is a single instruction for the engine loop. Commands carry the
// sequence assigned by the ingress source so rejections can be traced back
// to the message that caused them.
type Command interface {
	CommandType() CommandType
	Instrument() string
	SourceSequence() uint64
}

type SubmitOrder struct {
	Market    string         `json:"instrument"`
	OrderID   book.OrderID   `json:"order_id"`
	Side      book.Side      `json:"side"`
	Type      book.OrderType `json:"type"`
	Price     book.Price     `json:"price"`
	Quantity  book.Quantity  `json:"quantity"`
	SourceSeq uint64         `json:"source_seq"`
}

func (c SubmitOrder) CommandType() CommandType { return CommandSubmitOrder }
func (c SubmitOrder) Instrument() string       { return c.Market }
func (c SubmitOrder) SourceSequence() uint64   { return c.SourceSeq }

type CancelOrder struct {
	Market    string       `json:"instrument"`
	OrderID   book.OrderID `json:"order_id"`
	SourceSeq uint64       `json:"source_seq"`
}

func (c CancelOrder) CommandType() CommandType { return CommandCancelOrder }
func (c CancelOrder) Instrument() string       { return c.Market }
func (c CancelOrder) SourceSequence() uint64   { return c.SourceSeq }

type ModifyOrder struct {
	Market    string        `json:"instrument"`
	OrderID   book.OrderID  `json:"order_id"`
	Side      book.Side     `json:"side"`
	Price     book.Price    `json:"price"`
	Quantity  book.Quantity `json:"quantity"`
	SourceSeq uint64        `json:"source_seq"`
}

func (c ModifyOrder) CommandType() CommandType { return CommandModifyOrder }
func (c ModifyOrder) Instrument() string       { return c.Market }
func (c ModifyOrder) SourceSequence() uint64   { return c.SourceSeq }

// TradeExecuted is emitted once per match. Both parties keep the price
// they quoted, so the bid and ask legs carry separate prices.
type TradeExecuted struct {
	FillID     uuid.UUID     `json:"fill_id"`
	Market     string        `json:"instrument"`
	BidOrderID book.OrderID  `json:"bid_order_id"`
	BidPrice   book.Price    `json:"bid_price"`
	AskOrderID book.OrderID  `json:"ask_order_id"`
	AskPrice   book.Price    `json:"ask_price"`
	Quantity   book.Quantity `json:"quantity"`
	EngineSeq  uint64        `json:"engine_seq"`
	Timestamp  time.Time     `json:"timestamp"`
}

// NewTradeExecuted stamps a fresh fill ID onto a matched trade.
func NewTradeExecuted(market string, tr book.Trade, engineSeq uint64, at time.Time) TradeExecuted {
	return TradeExecuted{
		FillID:     uuid.New(),
		Market:     market,
		BidOrderID: tr.Bid.OrderID,
		BidPrice:   tr.Bid.Price,
		AskOrderID: tr.Ask.OrderID,
		AskPrice:   tr.Ask.Price,
		Quantity:   tr.Quantity(),
		EngineSeq:  engineSeq,
		Timestamp:  at,
	}
}
