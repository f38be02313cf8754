// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Collectors live in a private registry. A batch run has no scrape window,
// so Flush pushes the registry to a Pushgateway under the job grouping key.
package prompush

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/henil-shah-98/incubyte-test/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec // etl_step_total{step,status}
	stepDuration  *prometheus.SummaryVec // etl_step_duration_seconds{step,status}
	recordCounter *prometheus.CounterVec // etl_records_total{kind}
	partitionRows *prometheus.CounterVec // etl_partition_rows_total{partition}

	closeOnce sync.Once
}

// NewBackend constructs a Pushgateway backend. An empty jobName becomes "etl".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "etl"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_step_total",
			Help: "Pipeline step executions by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "etl_step_duration_seconds",
			Help:       "Duration of pipeline steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_records_total",
			Help: "Record counts by kind (parsed, inserted, rejected).",
		},
		[]string{"kind"},
	)
	partitionRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_partition_rows_total",
			Help: "Rows written per partition.",
		},
		[]string{"partition"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":   stepCounter,
		"step summary":   stepDuration,
		"record counter": recordCounter,
		"partition rows": partitionRows,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stepCounter:   stepCounter,
		stepDuration:  stepDuration,
		recordCounter: recordCounter,
		partitionRows: partitionRows,
	}, nil
}

// IncCounter routes known counters; unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "etl_step_total":
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case "etl_records_total":
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
	case "etl_partition_rows_total":
		b.partitionRows.WithLabelValues(labels["partition"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "etl_step_duration_seconds" {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway, replacing the
// previous push of the same job.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}

// Close performs the final push. Later calls are no-ops.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() { err = b.Flush() })
	return err
}
