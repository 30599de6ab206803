package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cleared-dev/bankrec/internal/model"
)

const (
	metricPrefix = "bankrec_"

	ResultSuccess  = "success"
	ResultError    = "error"
	ResultRejected = "rejected"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	refreshTotal   *prometheus.CounterVec
	refreshLatency *prometheus.HistogramVec

	commitTotal   *prometheus.CounterVec
	commitLatency *prometheus.HistogramVec

	pairsApplied    prometheus.Counter
	staleSelections prometheus.Counter

	workingSetRows *prometheus.GaugeVec
)

// Init registers the reconciliation metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		refreshTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refresh_total",
				Help: "Working-set refreshes by result",
			},
			[]string{"result"},
		)
		refreshLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "refresh_latency_seconds",
				Help:    "Record Store read plus classification latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		commitTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commit_total",
				Help: "Batch commits by result",
			},
			[]string{"result"},
		)
		commitLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "commit_latency_seconds",
				Help:    "Batch commit latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		pairsApplied = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "pairs_applied_total",
			Help: "Candidate/transaction pairs persisted by the Record Store",
		})
		staleSelections = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "stale_selections_total",
			Help: "Selected candidates skipped because they were already reconciled",
		})
		workingSetRows = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "working_set_rows",
				Help: "Rows in the current working set by side and tier",
			},
			[]string{"side", "tier"},
		)

		registry.MustRegister(
			refreshTotal,
			refreshLatency,
			commitTotal,
			commitLatency,
			pairsApplied,
			staleSelections,
			workingSetRows,
		)
	})
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node-exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// ObserveRefresh counts a working-set refresh and records its latency.
func ObserveRefresh(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if refreshTotal != nil {
		refreshTotal.WithLabelValues(result).Inc()
	}
	if refreshLatency != nil {
		refreshLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveCommit counts a batch commit and records its latency.
func ObserveCommit(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if commitTotal != nil {
		commitTotal.WithLabelValues(result).Inc()
	}
	if commitLatency != nil {
		commitLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddPairsApplied adds pairs the Record Store acknowledged.
func AddPairsApplied(count int) {
	if pairsApplied != nil && count > 0 {
		pairsApplied.Add(float64(count))
	}
}

// AddStaleSelections adds candidates skipped as already reconciled.
func AddStaleSelections(count int) {
	if staleSelections != nil && count > 0 {
		staleSelections.Add(float64(count))
	}
}

// SetWorkingSet records tier counts for one side ("transactions" or
// "candidates").
func SetWorkingSet(side string, exact, approximate, unmatched int) {
	if workingSetRows == nil {
		return
	}
	workingSetRows.WithLabelValues(side, string(model.TierExact)).Set(float64(exact))
	workingSetRows.WithLabelValues(side, string(model.TierApproximate)).Set(float64(approximate))
	workingSetRows.WithLabelValues(side, string(model.TierUnmatched)).Set(float64(unmatched))
}
