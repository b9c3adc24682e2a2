package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// ChainRequests 单个节点请求结果
	ChainRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_endpoint_requests_total",
			Help: "Total number of chain RPC requests per endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)
	ChainRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_broker_request_duration_seconds",
			Help:    "Time until the first successful endpoint answered, or all failed.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"action"},
	)
	ChainAllEndpointsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_broker_all_endpoints_failed_total",
			Help: "Number of broker calls where every selected endpoint failed.",
		},
		[]string{"action"},
	)

	// SyncCycles 同步周期
	SyncCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_sync_cycles_total",
			Help: "Total number of balance sync cycles by result.",
		},
		[]string{"result"},
	)
	SyncCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "balance_sync_cycle_duration_seconds",
			Help:    "Duration of a full fetch-then-reconcile cycle.",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
	)
	SyncHolders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "balance_sync_holders",
			Help: "Number of holders observed in the last snapshot.",
		},
		[]string{"symbol"},
	)
	ReconcileRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_records_total",
			Help: "Records classified by the reconciliation engine.",
		},
		[]string{"op"},
	)

	// AsyncWriterMessagesQueued AsyncWriter 指标
	AsyncWriterMessagesQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_queued_total",
			Help: "Total number of messages queued to async writer.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterMessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_dropped_total",
			Help: "Total number of messages dropped due to full queue.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_batch_size",
			Help:    "Number of items in each batch submitted to the writer.",
			Buckets: []float64{10, 50, 100, 200, 500, 1000},
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_flush_count_total",
			Help: "Total number of batch flushes triggered.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_flush_duration_seconds",
			Help:    "Time taken to flush a batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"writer_id"},
	)
	AsyncWriterItemsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_items_written_total",
			Help: "Total number of items successfully written by the async writer.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_failures_total",
			Help: "Total number of batches the writer failed to persist.",
		},
		[]string{"writer_id"},
	)
)

func init() {
	prometheus.MustRegister(
		// 链请求指标
		ChainRequests,
		ChainRequestDuration,
		ChainAllEndpointsFailed,

		// 同步与对账
		SyncCycles,
		SyncCycleDuration,
		SyncHolders,
		ReconcileRecords,

		// async 写入指标
		AsyncWriterMessagesQueued,
		AsyncWriterMessagesDropped,
		AsyncWriterBatchSize,
		AsyncWriterFlushCount,
		AsyncWriterFlushDuration,
		AsyncWriterItemsWritten,
		AsyncWriterFailures,
	)
}
