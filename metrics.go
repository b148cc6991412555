package livetable

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livetable_batches_total",
		Help: "Batches dispatched to the registry",
	})

	snapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livetable_snapshots_total",
		Help: "Snapshots received in batches",
	})

	unknownSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livetable_unknown_snapshots_total",
		Help: "Snapshots ignored because their id matched no node",
	})

	nodeChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livetable_node_changes_total",
		Help: "Merges that changed at least one attribute",
	})

	cellFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livetable_cell_failures_total",
		Help: "Cell computations that panicked or returned a bad row",
	})

	domOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livetable_dom_ops_total",
		Help: "Structural mutations applied to the rendered table",
	}, []string{"op"})

	visibleRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livetable_visible_rows",
		Help: "Rows displayed after the last visibility pass",
	})

	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "livetable_reconcile_duration_seconds",
		Help:    "Duration of reconciliation passes",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})
)
