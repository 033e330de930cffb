// Package engine runs the single-threaded matching loop. One goroutine
// owns every book; everything downstream sees immutable trade events.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"LimitBook/internal/book"
	"LimitBook/internal/event"
	"LimitBook/internal/observability"
)

// Engine applies commands to per-instrument books in arrival order and
// fans matched trades out to persistence and publishing.
// defaultGuardSize covers well past JetStream's redelivery window at
// typical command rates.
const defaultGuardSize = 65536

type Engine struct {
	books    map[string]*book.Orderbook
	sequence uint64
	guard    *deliveryGuard

	commands    <-chan event.Command
	persistChan chan<- event.TradeExecuted
	publishChan chan<- event.TradeExecuted

	metrics *observability.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// New creates an engine over the given instruments. Unknown instruments
// in incoming commands are rejected, never auto-created.
func New(
	instruments []string,
	commands <-chan event.Command,
	persistChan, publishChan chan<- event.TradeExecuted,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Engine {
	books := make(map[string]*book.Orderbook, len(instruments))
	for _, ins := range instruments {
		books[ins] = book.New()
	}
	return &Engine{
		books:       books,
		guard:       newDeliveryGuard(defaultGuardSize),
		commands:    commands,
		persistChan: persistChan,
		publishChan: publishChan,
		metrics:     metrics,
		log:         log,
		now:         time.Now,
	}
}

// Book returns the live book for an instrument, or nil. Safe to call
// from other goroutines: the book serializes access internally.
func (e *Engine) Book(instrument string) *book.Orderbook {
	return e.books[instrument]
}

// Instruments lists the configured instruments.
func (e *Engine) Instruments() []string {
	out := make([]string, 0, len(e.books))
	for ins := range e.books {
		out = append(out, ins)
	}
	return out
}

// Sequence is the number of trades emitted so far.
func (e *Engine) Sequence() uint64 {
	return e.sequence
}

// Run consumes commands until the context is canceled or the command
// channel closes. It is the only goroutine that mutates the books.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info().Int("instruments", len(e.books)).Msg("engine loop started")
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Uint64("sequence", e.sequence).Msg("engine loop stopped")
			return
		case cmd, ok := <-e.commands:
			if !ok {
				e.log.Info().Uint64("sequence", e.sequence).Msg("command channel closed")
				return
			}
			e.Process(cmd)
		}
	}
}

// Process applies a single command. Exposed for tests and for the
// recovery path; production traffic goes through Run.
func (e *Engine) Process(cmd event.Command) []event.TradeExecuted {
	start := e.now()
	cmdType := string(cmd.CommandType())

	// NATS delivery is at-least-once: a crash between the channel send
	// and the ack redelivers a command that may already have executed.
	// Sequenced deliveries are applied exactly once; the mark covers
	// rejections too, since the delivery was consumed either way.
	if key, ok := guardKey(cmd); ok {
		if e.guard.seen(key) {
			e.reject(cmdType, "duplicate_delivery")
			e.log.Debug().
				Str("instrument", cmd.Instrument()).
				Uint64("source_seq", cmd.SourceSequence()).
				Msg("redelivered command ignored")
			return nil
		}
		defer e.guard.mark(key)
	}

	b, ok := e.books[cmd.Instrument()]
	if !ok {
		e.reject(cmdType, "unknown_instrument")
		e.log.Warn().
			Str("instrument", cmd.Instrument()).
			Uint64("source_seq", cmd.SourceSequence()).
			Msg("command for unknown instrument")
		return nil
	}

	var trades []book.Trade
	rejected := false
	switch c := cmd.(type) {
	case event.SubmitOrder:
		sizeBefore := b.Size()
		trades = b.AddOrder(book.NewOrder(c.Type, c.OrderID, c.Side, c.Price, c.Quantity))
		if len(trades) == 0 && b.Size() == sizeBefore && !b.Contains(c.OrderID) {
			// Nothing traded and nothing rested: duplicate ID, zero
			// quantity, or an unmatchable fill-and-kill.
			rejected = true
			e.reject(cmdType, "not_accepted")
			e.log.Debug().
				Str("instrument", c.Market).
				Uint64("order_id", c.OrderID).
				Msg("order rejected")
		}
	case event.CancelOrder:
		if !b.Contains(c.OrderID) {
			rejected = true
			e.reject(cmdType, "unknown_order")
			e.log.Debug().
				Str("instrument", c.Market).
				Uint64("order_id", c.OrderID).
				Msg("cancel for unknown order")
			break
		}
		b.CancelOrder(c.OrderID)
	case event.ModifyOrder:
		if !b.Contains(c.OrderID) {
			rejected = true
			e.reject(cmdType, "unknown_order")
			e.log.Debug().
				Str("instrument", c.Market).
				Uint64("order_id", c.OrderID).
				Msg("modify for unknown order")
			break
		}
		trades = b.ModifyOrder(c.OrderID, c.Side, c.Price, c.Quantity)
	default:
		e.reject(cmdType, "unknown_command")
		return nil
	}

	out := e.emit(cmd.Instrument(), trades)

	if e.metrics != nil {
		if !rejected {
			e.metrics.CommandsApplied.WithLabelValues(cmdType).Inc()
		}
		e.metrics.CommandDuration.WithLabelValues(cmdType).Observe(time.Since(start).Seconds())
		e.metrics.EngineSequence.Set(float64(e.sequence))
		e.metrics.RestingOrders.WithLabelValues(cmd.Instrument()).Set(float64(b.Size()))
	}
	return out
}

func (e *Engine) emit(instrument string, trades []book.Trade) []event.TradeExecuted {
	if len(trades) == 0 {
		return nil
	}
	out := make([]event.TradeExecuted, 0, len(trades))
	for _, tr := range trades {
		e.sequence++
		evt := event.NewTradeExecuted(instrument, tr, e.sequence, e.now())
		out = append(out, evt)

		// Persistence: blocking send. The loop stalls until the worker
		// drains, so no executed trade is ever lost.
		if e.persistChan != nil {
			select {
			case e.persistChan <- evt:
			default:
				if e.metrics != nil {
					e.metrics.PersistBackpressure.Inc()
				}
				e.persistChan <- evt
			}
		}

		// Publishing: non-blocking send, drop on full. Subscribers can
		// refetch from the trade log if they fall behind.
		if e.publishChan != nil {
			select {
			case e.publishChan <- evt:
			default:
				if e.metrics != nil {
					e.metrics.PublishDrops.Inc()
				}
			}
		}

		if e.metrics != nil {
			e.metrics.TradesMatched.WithLabelValues(instrument).Inc()
			e.metrics.TradeQuantity.WithLabelValues(instrument).Add(float64(evt.Quantity))
		}
	}
	return out
}

func (e *Engine) reject(cmdType, reason string) {
	if e.metrics != nil {
		e.metrics.CommandsRejected.WithLabelValues(cmdType, reason).Inc()
	}
}
