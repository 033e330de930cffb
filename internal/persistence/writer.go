// Package persistence journals executed trades to Postgres in batches.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TradeRow represents a row in trade_log.trades.
type TradeRow struct {
	FillID     uuid.UUID
	Instrument string
	BidOrderID int64
	BidPrice   int64
	AskOrderID int64
	AskPrice   int64
	Quantity   int64
	EngineSeq  int64
	Timestamp  time.Time
}

// TradeLogWriter writes trades using multi-row INSERT. The fill_id
// primary key makes retried batches idempotent.
type TradeLogWriter struct {
	db *sql.DB
}

func NewTradeLogWriter(db *sql.DB) *TradeLogWriter {
	return &TradeLogWriter{db: db}
}

// WriteTradeBatch inserts a batch inside the given transaction.
func (w *TradeLogWriter) WriteTradeBatch(ctx context.Context, tx *sql.Tx, trades []TradeRow) error {
	if len(trades) == 0 {
		return nil
	}

	query := `INSERT INTO trade_log.trades
		(fill_id, instrument, bid_order_id, bid_price, ask_order_id, ask_price, quantity, engine_seq, timestamp)
		VALUES `

	values := make([]string, 0, len(trades))
	args := make([]interface{}, 0, len(trades)*9)

	for i, tr := range trades {
		base := i * 9
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			tr.FillID, tr.Instrument, tr.BidOrderID, tr.BidPrice,
			tr.AskOrderID, tr.AskPrice, tr.Quantity, tr.EngineSeq, tr.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (fill_id) DO NOTHING" // Idempotent writes

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
