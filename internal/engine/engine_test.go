package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"LimitBook/internal/book"
	"LimitBook/internal/engine"
	"LimitBook/internal/event"
	"LimitBook/internal/observability"
)

func newTestEngine(t *testing.T, persistCap, publishCap int) (*engine.Engine, chan event.Command, chan event.TradeExecuted, chan event.TradeExecuted) {
	t.Helper()
	commands := make(chan event.Command, 16)
	persist := make(chan event.TradeExecuted, persistCap)
	publish := make(chan event.TradeExecuted, publishCap)
	eng := engine.New([]string{"BTC-USDT", "ETH-USDT"}, commands, persist, publish,
		nil, zerolog.Nop())
	return eng, commands, persist, publish
}

func TestEngine_SubmitAndMatch(t *testing.T) {
	eng, _, persist, publish := newTestEngine(t, 16, 16)

	eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
	})
	out := eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 2, Side: book.SideSell,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
	})

	if len(out) != 1 {
		t.Fatalf("expected 1 trade event, got %d", len(out))
	}
	evt := out[0]
	if evt.BidOrderID != 1 || evt.AskOrderID != 2 || evt.Quantity != 5 {
		t.Errorf("event = %+v, want bid=1 ask=2 qty=5", evt)
	}
	if evt.EngineSeq != 1 {
		t.Errorf("engine seq = %d, want 1", evt.EngineSeq)
	}
	if evt.FillID == uuid.Nil {
		t.Error("fill ID not assigned")
	}

	// Both downstream channels got the same event.
	select {
	case got := <-persist:
		if got.FillID != evt.FillID {
			t.Error("persist channel received a different event")
		}
	default:
		t.Fatal("persist channel empty")
	}
	select {
	case got := <-publish:
		if got.FillID != evt.FillID {
			t.Error("publish channel received a different event")
		}
	default:
		t.Fatal("publish channel empty")
	}
}

func TestEngine_UnknownInstrumentRejected(t *testing.T) {
	eng, _, persist, _ := newTestEngine(t, 16, 16)

	out := eng.Process(event.SubmitOrder{
		Market: "DOGE-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 100, Quantity: 5,
	})
	if out != nil {
		t.Fatalf("expected no events, got %v", out)
	}
	if len(persist) != 0 {
		t.Error("rejected command reached the persist channel")
	}
}

func TestEngine_BooksAreIsolated(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, 16, 16)

	eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
	})
	// Same price on another instrument must not cross.
	out := eng.Process(event.SubmitOrder{
		Market: "ETH-USDT", OrderID: 2, Side: book.SideSell,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
	})
	if len(out) != 0 {
		t.Fatalf("instruments crossed: %v", out)
	}
	if eng.Book("BTC-USDT").Size() != 1 || eng.Book("ETH-USDT").Size() != 1 {
		t.Error("orders not resting on their own books")
	}
}

func TestEngine_CancelAndModify(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, 16, 16)

	eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 9900, Quantity: 5,
	})
	eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 2, Side: book.SideSell,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
	})

	// Raising the bid to the ask matches through the modify path.
	out := eng.Process(event.ModifyOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Price: 10000, Quantity: 5,
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 trade event from modify, got %d", len(out))
	}

	eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 3, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 9800, Quantity: 5,
	})
	eng.Process(event.CancelOrder{Market: "BTC-USDT", OrderID: 3})
	if eng.Book("BTC-USDT").Size() != 0 {
		t.Errorf("book size = %d, want 0", eng.Book("BTC-USDT").Size())
	}
}

func TestEngine_PublishDropOnFull(t *testing.T) {
	// Publish capacity 1: the second trade is dropped, not blocked on.
	eng, _, persist, publish := newTestEngine(t, 16, 1)

	for i := 0; i < 2; i++ {
		base := book.OrderID(i * 10)
		eng.Process(event.SubmitOrder{
			Market: "BTC-USDT", OrderID: base + 1, Side: book.SideBuy,
			Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
		})
		eng.Process(event.SubmitOrder{
			Market: "BTC-USDT", OrderID: base + 2, Side: book.SideSell,
			Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
		})
	}

	if len(persist) != 2 {
		t.Errorf("persist channel holds %d events, want 2", len(persist))
	}
	if len(publish) != 1 {
		t.Errorf("publish channel holds %d events, want 1 (second dropped)", len(publish))
	}
}

func TestEngine_RedeliveredSubmitIgnored(t *testing.T) {
	eng, _, persist, _ := newTestEngine(t, 16, 16)

	submit := event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
		SourceSeq: 1,
	}
	eng.Process(submit)
	out := eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 2, Side: book.SideSell,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
		SourceSeq: 2,
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 trade event, got %d", len(out))
	}

	// Order 1 has fully filled, so the book no longer knows its ID. A
	// redelivery of the same message must not execute a second time.
	out = eng.Process(submit)
	if out != nil {
		t.Fatalf("redelivered submit produced events: %v", out)
	}
	if eng.Book("BTC-USDT").Size() != 0 {
		t.Errorf("redelivered submit rested: size = %d, want 0", eng.Book("BTC-USDT").Size())
	}
	if len(persist) != 1 {
		t.Errorf("persist channel holds %d events, want 1", len(persist))
	}
	if eng.Sequence() != 1 {
		t.Errorf("sequence = %d, want 1", eng.Sequence())
	}
}

func TestEngine_RedeliveredCancelIgnored(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, 16, 16)

	eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
		SourceSeq: 1,
	})
	cancel := event.CancelOrder{Market: "BTC-USDT", OrderID: 1, SourceSeq: 2}
	eng.Process(cancel)

	// The ID is free again; a fresh order may reuse it.
	eng.Process(event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 9900, Quantity: 3,
		SourceSeq: 3,
	})

	// A redelivered cancel must not take out the new order.
	eng.Process(cancel)
	if !eng.Book("BTC-USDT").Contains(1) {
		t.Error("redelivered cancel removed a later order with the same ID")
	}
}

func TestEngine_UnsequencedCommandsNotGuarded(t *testing.T) {
	// The HTTP admin path carries no source sequence; identical-looking
	// commands from it are applied every time.
	eng, _, _, _ := newTestEngine(t, 16, 16)

	submit := event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
	}
	eng.Process(submit)
	eng.Process(event.CancelOrder{Market: "BTC-USDT", OrderID: 1})
	eng.Process(submit)
	if !eng.Book("BTC-USDT").Contains(1) {
		t.Error("resubmitted unsequenced order was not applied")
	}
}

func TestEngine_UnknownIDRejectionsCounted(t *testing.T) {
	metrics := observability.NewMetrics()
	commands := make(chan event.Command, 16)
	eng := engine.New([]string{"BTC-USDT"}, commands, nil, nil, metrics, zerolog.Nop())

	eng.Process(event.CancelOrder{Market: "BTC-USDT", OrderID: 42})
	eng.Process(event.ModifyOrder{
		Market: "BTC-USDT", OrderID: 42, Side: book.SideBuy,
		Price: 10000, Quantity: 5,
	})

	cancelRejects := promtest.ToFloat64(
		metrics.CommandsRejected.WithLabelValues("cancel_order", "unknown_order"))
	if cancelRejects != 1 {
		t.Errorf("cancel_order unknown_order rejections = %v, want 1", cancelRejects)
	}
	modifyRejects := promtest.ToFloat64(
		metrics.CommandsRejected.WithLabelValues("modify_order", "unknown_order"))
	if modifyRejects != 1 {
		t.Errorf("modify_order unknown_order rejections = %v, want 1", modifyRejects)
	}
	cancelApplied := promtest.ToFloat64(
		metrics.CommandsApplied.WithLabelValues("cancel_order"))
	if cancelApplied != 0 {
		t.Errorf("cancel_order applied = %v, want 0", cancelApplied)
	}
}

func TestEngine_RunDrainsCommandChannel(t *testing.T) {
	eng, commands, persist, _ := newTestEngine(t, 16, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	commands <- event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 1, Side: book.SideBuy,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
	}
	commands <- event.SubmitOrder{
		Market: "BTC-USDT", OrderID: 2, Side: book.SideSell,
		Type: book.GoodTilCanceled, Price: 10000, Quantity: 5,
	}

	select {
	case <-persist:
	case <-time.After(2 * time.Second):
		t.Fatal("no trade event within 2s")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
