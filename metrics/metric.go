package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registry = prometheus.NewRegistry()

	SeriesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "MetaTree",
		Name:      "series_total",
		Help:      "number of measurement leaves in the metadata tree",
	})
	StorageGroupTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "MetaTree",
		Name:      "storage_group_total",
		Help:      "number of storage groups in the metadata tree",
	})
	NodeTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "MetaTree",
		Name:      "node_total",
		Help:      "number of nodes in the metadata tree, the root included",
	})
	InternedPathsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "MetaTree",
		Name:      "interned_paths_total",
		Help:      "number of canonical path strings held by the interning pool",
	})
	OpLogRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "MetaTree",
		Name:      "oplog_records_total",
		Help:      "operation log records appended since process start",
	})
	CheckpointTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "MetaTree",
		Name:      "checkpoint_total",
		Help:      "checkpoints attempted since process start",
	}, []string{"status"})
	CheckpointDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "MetaTree",
		Name:      "checkpoint_duration_seconds",
		Help:      "wall time spent writing one snapshot",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

func init() {
	Registry.MustRegister(
		SeriesTotal,
		StorageGroupTotal,
		NodeTotal,
		InternedPathsTotal,
		OpLogRecords,
		CheckpointTotal,
		CheckpointDuration,
	)
}
