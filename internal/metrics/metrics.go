// Package metrics exports the results of a test run in the Prometheus text
// format, for CI systems that scrape a node_exporter textfile directory.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AndreyAkinshin/regtest/internal/runner"
)

const namespace = "regtest"

// Recorder collects per-case metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	cases    *prometheus.CounterVec
	failing  *prometheus.GaugeVec
	maxDiff  *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	passed   *prometheus.GaugeVec
}

// New creates a Recorder. suite labels every series so that several
// suites can share one textfile directory.
func New(suite string) *Recorder {
	constLabels := prometheus.Labels{"suite": suite}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cases_total",
			Help:        "Test cases run, by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		failing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "failing_results",
			Help:        "Result values outside tolerance.",
			ConstLabels: constLabels,
		}, []string{"test"}),
		maxDiff: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "largest_difference",
			Help:        "Largest absolute difference among failing values.",
			ConstLabels: constLabels,
		}, []string{"test"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "case_duration_seconds",
			Help:        "Wall time of the engine run and comparison.",
			ConstLabels: constLabels,
		}, []string{"test"}),
		passed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "case_passed",
			Help:        "1 if the test case passed, 0 otherwise.",
			ConstLabels: constLabels,
		}, []string{"test"}),
	}
	r.registry.MustRegister(r.cases, r.failing, r.maxDiff, r.duration, r.passed)
	return r
}

// Observe records one test case.
func (r *Recorder) Observe(res runner.Result) {
	r.cases.WithLabelValues(res.Outcome.String()).Inc()
	r.duration.WithLabelValues(res.Name).Set(res.Duration.Seconds())

	passed := 0.0
	if res.Passed() {
		passed = 1
	}
	r.passed.WithLabelValues(res.Name).Set(passed)

	if res.Outcome == runner.OutcomeComparison {
		r.failing.WithLabelValues(res.Name).Set(float64(res.Failure.Count))
		r.maxDiff.WithLabelValues(res.Name).Set(res.Failure.MaxDiff)
	}
}

// Gatherer exposes the registry, e.g. for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteFile atomically writes the collected metrics to path.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
