package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"LimitBook/internal/event"
	"LimitBook/internal/tick"
)

// TradePublisher publishes executed trades to NATS for downstream
// consumers. Subjects follow the pattern trades.{instrument}.
type TradePublisher struct {
	js        jetstream.JetStream
	inputChan <-chan event.TradeExecuted
}

// tradeWireJSON is the outbound wire format. Prices go out as decimal
// strings, same convention as the inbound side.
type tradeWireJSON struct {
	FillID     string    `json:"fill_id"`
	Instrument string    `json:"instrument"`
	BidOrderID uint64    `json:"bid_order_id"`
	BidPrice   string    `json:"bid_price"`
	AskOrderID uint64    `json:"ask_order_id"`
	AskPrice   string    `json:"ask_price"`
	Quantity   uint64    `json:"quantity"`
	EngineSeq  uint64    `json:"engine_seq"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewTradePublisher(js jetstream.JetStream, inputChan <-chan event.TradeExecuted) *TradePublisher {
	return &TradePublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the publisher loop. Publish failures are non-fatal: the
// trade log in Postgres remains the source of truth.
func (tp *TradePublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-tp.inputChan:
			if !ok {
				return nil
			}

			if err := tp.publish(ctx, evt); err != nil {
				logger.Warn().
					Err(err).
					Uint64("engine_seq", evt.EngineSeq).
					Msg("trade publish failed")
			}
		}
	}
}

func (tp *TradePublisher) publish(ctx context.Context, evt event.TradeExecuted) error {
	wire := tradeWireJSON{
		FillID:     evt.FillID.String(),
		Instrument: evt.Market,
		BidOrderID: uint64(evt.BidOrderID),
		BidPrice:   tick.PriceScale.Format(evt.BidPrice),
		AskOrderID: uint64(evt.AskOrderID),
		AskPrice:   tick.PriceScale.Format(evt.AskPrice),
		Quantity:   uint64(evt.Quantity),
		EngineSeq:  evt.EngineSeq,
		Timestamp:  evt.Timestamp,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	subject := fmt.Sprintf("trades.%s", evt.Market)
	_, err = tp.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStreams creates the outbound trade and depth streams.
func EnsureOutboundStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      "TRADES",
			Subjects:  []string{"trades.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "DEPTH",
			Subjects:  []string{"depth.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		logger.Info().Str("stream", cfg.Name).Msg("ensured outbound stream")
	}
	return nil
}
