// Package marketdata builds aggregated depth snapshots from live books
// and publishes them on an interval.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"LimitBook/internal/book"
	"LimitBook/internal/observability"
	"LimitBook/internal/tick"
)

// DepthLevel is one aggregated price level, rendered with a decimal
// string price for consumers.
type DepthLevel struct {
	Price    string `json:"price"`
	Quantity uint64 `json:"quantity"`
}

// Depth is a point-in-time snapshot of the top of one book.
type Depth struct {
	Instrument string       `json:"instrument"`
	Bids       []DepthLevel `json:"bids"`
	Asks       []DepthLevel `json:"asks"`
	Timestamp  time.Time    `json:"timestamp"`
}

// BuildDepth reads the top levels of a book. topN <= 0 means all levels.
func BuildDepth(instrument string, b *book.Orderbook, topN int) Depth {
	bids, asks := b.Levels()
	if topN > 0 {
		if len(bids) > topN {
			bids = bids[:topN]
		}
		if len(asks) > topN {
			asks = asks[:topN]
		}
	}
	return Depth{
		Instrument: instrument,
		Bids:       renderLevels(bids),
		Asks:       renderLevels(asks),
		Timestamp:  time.Now(),
	}
}

func renderLevels(levels []book.LevelInfo) []DepthLevel {
	out := make([]DepthLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, DepthLevel{
			Price:    tick.PriceScale.Format(lvl.Price),
			Quantity: uint64(lvl.Quantity),
		})
	}
	return out
}

// BookSource resolves live books for depth snapshots; the engine
// satisfies it.
type BookSource interface {
	Book(instrument string) *book.Orderbook
	Instruments() []string
}

// Publisher snapshots every configured instrument on an interval and
// publishes to depth.{instrument}.
type Publisher struct {
	source   BookSource
	js       jetstream.JetStream
	interval time.Duration
	topN     int
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func NewPublisher(source BookSource, js jetstream.JetStream, interval time.Duration, topN int, metrics *observability.Metrics, log zerolog.Logger) *Publisher {
	return &Publisher{
		source:   source,
		js:       js,
		interval: interval,
		topN:     topN,
		metrics:  metrics,
		log:      log,
	}
}

// Run publishes until the context is canceled. Publish failures are
// non-fatal: the next tick carries a fresh snapshot anyway.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.publishAll(ctx)
		}
	}
}

func (p *Publisher) publishAll(ctx context.Context) {
	for _, ins := range p.source.Instruments() {
		b := p.source.Book(ins)
		if b == nil {
			continue
		}
		depth := BuildDepth(ins, b, p.topN)

		data, err := json.Marshal(depth)
		if err != nil {
			p.log.Error().Err(err).Str("instrument", ins).Msg("marshal depth")
			continue
		}
		if _, err := p.js.Publish(ctx, fmt.Sprintf("depth.%s", ins), data); err != nil {
			p.log.Warn().Err(err).Str("instrument", ins).Msg("depth publish failed")
			continue
		}

		if p.metrics != nil {
			p.metrics.DepthPublished.WithLabelValues(ins).Inc()
			p.metrics.PriceLevels.WithLabelValues(ins, "bid").Set(float64(len(depth.Bids)))
			p.metrics.PriceLevels.WithLabelValues(ins, "ask").Set(float64(len(depth.Asks)))
		}
	}
}
