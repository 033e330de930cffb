package ingestion

import (
	"encoding/json"
	"fmt"

	"LimitBook/internal/book"
	"LimitBook/internal/event"
	"LimitBook/internal/tick"
)

// ParseRawCommand converts a RawCommand (JSON bytes + command type) into
// a typed command for the engine. The shell validates here so the engine
// loop only ever sees well-formed input.
func ParseRawCommand(raw RawCommand, commandType string) (event.Command, error) {
	switch commandType {
	case "SubmitOrder":
		return parseSubmitOrder(raw.Data)
	case "CancelOrder":
		return parseCancelOrder(raw.Data)
	case "ModifyOrder":
		return parseModifyOrder(raw.Data)
	default:
		return nil, fmt.Errorf("unknown command type: %s", commandType)
	}
}

// --- JSON wire formats ---
// Field names use snake_case to match upstream producers. Prices arrive
// as decimal strings and are converted to ticks here; the engine never
// sees a float.

type submitOrderJSON struct {
	Instrument string `json:"instrument"`
	OrderID    uint64 `json:"order_id"`
	Side       string `json:"side"`  // "buy" or "sell"
	Type       string `json:"type"`  // "gtc" or "fak"
	Price      string `json:"price"` // decimal, e.g. "101.25"
	Quantity   uint64 `json:"quantity"`
	SourceSeq  uint64 `json:"source_seq"`
}

func parseSubmitOrder(data []byte) (event.SubmitOrder, error) {
	var j submitOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return event.SubmitOrder{}, fmt.Errorf("parse SubmitOrder: %w", err)
	}
	if j.Instrument == "" {
		return event.SubmitOrder{}, fmt.Errorf("parse SubmitOrder: missing instrument")
	}
	if j.OrderID == 0 {
		return event.SubmitOrder{}, fmt.Errorf("parse SubmitOrder: missing order_id")
	}

	side, err := parseSide(j.Side)
	if err != nil {
		return event.SubmitOrder{}, fmt.Errorf("parse SubmitOrder: %w", err)
	}

	var otype book.OrderType
	switch j.Type {
	case "gtc", "":
		otype = book.GoodTilCanceled
	case "fak":
		otype = book.FillAndKill
	default:
		return event.SubmitOrder{}, fmt.Errorf("parse SubmitOrder: unknown type %q", j.Type)
	}

	price, err := tick.PriceScale.Parse(j.Price)
	if err != nil {
		return event.SubmitOrder{}, fmt.Errorf("parse SubmitOrder: %w", err)
	}

	return event.SubmitOrder{
		Market:    j.Instrument,
		OrderID:   j.OrderID,
		Side:      side,
		Type:      otype,
		Price:     price,
		Quantity:  j.Quantity,
		SourceSeq: j.SourceSeq,
	}, nil
}

type cancelOrderJSON struct {
	Instrument string `json:"instrument"`
	OrderID    uint64 `json:"order_id"`
	SourceSeq  uint64 `json:"source_seq"`
}

func parseCancelOrder(data []byte) (event.CancelOrder, error) {
	var j cancelOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return event.CancelOrder{}, fmt.Errorf("parse CancelOrder: %w", err)
	}
	if j.Instrument == "" {
		return event.CancelOrder{}, fmt.Errorf("parse CancelOrder: missing instrument")
	}
	if j.OrderID == 0 {
		return event.CancelOrder{}, fmt.Errorf("parse CancelOrder: missing order_id")
	}
	return event.CancelOrder{
		Market:    j.Instrument,
		OrderID:   j.OrderID,
		SourceSeq: j.SourceSeq,
	}, nil
}

type modifyOrderJSON struct {
	Instrument string `json:"instrument"`
	OrderID    uint64 `json:"order_id"`
	Side       string `json:"side"`
	Price      string `json:"price"`
	Quantity   uint64 `json:"quantity"`
	SourceSeq  uint64 `json:"source_seq"`
}

func parseModifyOrder(data []byte) (event.ModifyOrder, error) {
	var j modifyOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return event.ModifyOrder{}, fmt.Errorf("parse ModifyOrder: %w", err)
	}
	if j.Instrument == "" {
		return event.ModifyOrder{}, fmt.Errorf("parse ModifyOrder: missing instrument")
	}
	if j.OrderID == 0 {
		return event.ModifyOrder{}, fmt.Errorf("parse ModifyOrder: missing order_id")
	}

	side, err := parseSide(j.Side)
	if err != nil {
		return event.ModifyOrder{}, fmt.Errorf("parse ModifyOrder: %w", err)
	}
	price, err := tick.PriceScale.Parse(j.Price)
	if err != nil {
		return event.ModifyOrder{}, fmt.Errorf("parse ModifyOrder: %w", err)
	}

	return event.ModifyOrder{
		Market:    j.Instrument,
		OrderID:   j.OrderID,
		Side:      side,
		Price:     price,
		Quantity:  j.Quantity,
		SourceSeq: j.SourceSeq,
	}, nil
}

func parseSide(s string) (book.Side, error) {
	switch s {
	case "buy":
		return book.SideBuy, nil
	case "sell":
		return book.SideSell, nil
	default:
		return book.SideBuy, fmt.Errorf("unknown side %q", s)
	}
}

// CommandTypeForSubject maps an inbound subject back to its command
// type, e.g. "orders.submit.BTC-USDT" -> "SubmitOrder".
func CommandTypeForSubject(subject string, subjects []SubjectConfig) (string, bool) {
	for _, cfg := range subjects {
		prefix := cfg.Subject
		if len(prefix) > 0 && prefix[len(prefix)-1] == '>' {
			prefix = prefix[:len(prefix)-1]
		}
		if len(subject) >= len(prefix) && subject[:len(prefix)] == prefix {
			return cfg.CommandType, true
		}
	}
	return "", false
}
