// Package query serves read-only trade history from the Postgres log.
package query

import (
	"context"
	"database/sql"
	"fmt"

	"LimitBook/internal/tick"
)

const defaultTradeLimit = 100
const maxTradeLimit = 1000

// TradeQueryService reads from trade_log.trades. The live books are
// queried directly from the engine; only executed trades go through
// the database.
type TradeQueryService struct {
	db *sql.DB
}

func NewTradeQueryService(db *sql.DB) *TradeQueryService {
	return &TradeQueryService{db: db}
}

// GetTrades returns the most recent trades for an instrument, newest
// first. limit <= 0 falls back to the default; excessive limits are
// clamped. beforeSeq > 0 restricts the result to trades with an engine
// sequence strictly below it, so callers can page backwards through
// history from a stable watermark.
func (qs *TradeQueryService) GetTrades(ctx context.Context, instrument string, limit int, beforeSeq uint64) ([]TradeResponse, error) {
	if limit <= 0 {
		limit = defaultTradeLimit
	}
	if limit > maxTradeLimit {
		limit = maxTradeLimit
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT fill_id, instrument, bid_order_id, bid_price,
		       ask_order_id, ask_price, quantity, engine_seq, timestamp
		FROM trade_log.trades
		WHERE instrument = $1
		  AND ($3 = 0 OR engine_seq < $3)
		ORDER BY engine_seq DESC
		LIMIT $2
	`, instrument, limit, beforeSeq)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []TradeResponse
	for rows.Next() {
		var t TradeResponse
		var bidPrice, askPrice int64
		if err := rows.Scan(
			&t.FillID, &t.Instrument, &t.BidOrderID, &bidPrice,
			&t.AskOrderID, &askPrice, &t.Quantity, &t.EngineSeq, &t.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.BidPrice = tick.PriceScale.Format(bidPrice)
		t.AskPrice = tick.PriceScale.Format(askPrice)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// GetTradeCount returns the number of journaled trades for an instrument.
func (qs *TradeQueryService) GetTradeCount(ctx context.Context, instrument string) (int64, error) {
	var count int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trade_log.trades WHERE instrument = $1
	`, instrument).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return count, nil
}
