// Package metrics records operational metrics for ingestion runs behind a
// narrow, pluggable Backend.
//
// The default backend is a no-op, so instrumented code can always call the
// Record helpers. Concrete systems (Datadog) live in subpackages and are
// installed once at startup with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step and observes its duration.
// Steps are "parse", "load", "commit" and "report".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b := current()
	b.IncCounter("etl_step_total", 1, lbls)
	b.ObserveHistogram("etl_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRow increments a record-level counter. Kinds used by the pipeline:
//   - "parsed"
//   - "inserted"
//   - "rejected"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter("etl_records_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordPartitionRows counts rows written to one partition.
func RecordPartitionRows(job, partition string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter("etl_partition_rows_total", float64(delta), Labels{
		"job":       job,
		"partition": partition,
	})
}
