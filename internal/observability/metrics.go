package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the matching service.
type Metrics struct {
	// --- Engine ---
	CommandsApplied  *prometheus.CounterVec
	CommandsRejected *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	EngineSequence   prometheus.Gauge

	// --- Book ---
	TradesMatched *prometheus.CounterVec
	TradeQuantity *prometheus.CounterVec
	RestingOrders *prometheus.GaugeVec
	PriceLevels   *prometheus.GaugeVec

	// --- Channel & Backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Ingestion ---
	IngestMessages   *prometheus.CounterVec
	IngestParseFails *prometheus.CounterVec

	// --- Persistence ---
	PersistTradesWritten prometheus.Counter
	PersistBatchSize     prometheus.Histogram
	PersistBatchDur      prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistRetry         prometheus.Counter

	// --- Market data ---
	DepthPublished *prometheus.CounterVec

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		// Engine
		CommandsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_commands_applied_total",
			Help: "Commands successfully applied by the engine",
		}, []string{"command_type"}),

		CommandsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_commands_rejected_total",
			Help: "Commands rejected (duplicate, unmatchable, unknown instrument)",
		}, []string{"command_type", "reason"}),

		CommandDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "book_command_apply_duration_seconds",
			Help:    "Time to apply a single command in the engine",
			Buckets: latencyBuckets,
		}, []string{"command_type"}),

		EngineSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "book_engine_sequence",
			Help: "Current engine sequence number",
		}),

		// Book
		TradesMatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_trades_matched_total",
			Help: "Trades produced by matching",
		}, []string{"instrument"}),

		TradeQuantity: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_trade_quantity_total",
			Help: "Total quantity matched",
		}, []string{"instrument"}),

		RestingOrders: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "book_resting_orders",
			Help: "Orders currently resting in the book",
		}, []string{"instrument"}),

		PriceLevels: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "book_price_levels",
			Help: "Non-empty price levels per side",
		}, []string{"instrument", "side"}),

		// Channel & Backpressure
		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "book_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "book_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "book_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "book_publish_drops_total",
			Help: "Trade events dropped due to full publish channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "book_persist_backpressure_total",
			Help: "Times the engine blocked on the persist channel",
		}),

		// Ingestion
		IngestMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_ingest_messages_total",
			Help: "Messages pulled from NATS",
		}, []string{"subject"}),

		IngestParseFails: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_ingest_parse_failures_total",
			Help: "Messages discarded as unparseable",
		}, []string{"subject"}),

		// Persistence
		PersistTradesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "book_persist_trades_written_total",
			Help: "Trades written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "book_persist_batch_size",
			Help:    "Trades per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "book_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "book_persist_retry_total",
			Help: "Persistence retries",
		}),

		// Market data
		DepthPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_depth_published_total",
			Help: "Depth snapshots published",
		}, []string{"instrument"}),

		// Query API
		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "book_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "book_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
