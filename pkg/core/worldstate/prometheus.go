package worldstate

import "github.com/prometheus/client_golang/prometheus"

// Registry metrics.
var (
	trackedBlocks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of block hashes tracked by the registry",
			Name:      "tracked_blocks",
			Namespace: "cambric",
		},
	)
	installedStates = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of blocks with installed storage",
			Name:      "installed_states",
			Namespace: "cambric",
		},
	)
	stateConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of state publications rejected as conflicting",
			Name:      "state_conflicts_total",
			Namespace: "cambric",
		},
	)
	rootMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of state publications rejected for root mismatch",
			Name:      "root_mismatches_total",
			Namespace: "cambric",
		},
	)
)

func init() {
	prometheus.MustRegister(
		trackedBlocks,
		installedStates,
		stateConflicts,
		rootMismatches,
	)
}

func updateTrackedBlocksMetric(n int) {
	trackedBlocks.Set(float64(n))
}

func updateInstalledStatesMetric(n uint32) {
	installedStates.Set(float64(n))
}

func updateStateConflictsMetric() {
	stateConflicts.Inc()
}

func updateRootMismatchesMetric() {
	rootMismatches.Inc()
}
