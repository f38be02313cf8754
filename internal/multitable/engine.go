package multitable

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/henil-shah-98/incubyte-test/internal/metrics"
	"github.com/henil-shah-98/incubyte-test/internal/partition"
	"github.com/henil-shah-98/incubyte-test/internal/records"
	"github.com/henil-shah-98/incubyte-test/internal/storage"
)

// Logger is the minimal logging interface used by the engine and runner.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Result summarizes one run.
type Result struct {
	RunID string

	// Partitions written by this run, sorted.
	Partitions []string

	// Rows is the number of records written.
	Rows int

	PerPartition map[string]int
}

// Engine routes records to their partitions: for every record, in input
// order, it ensures the partition exists and writes the record to it.
//
// The engine never commits; the caller owns the transaction boundary.
type Engine struct {
	Store  storage.PartitionStore
	Logger Logger

	// Job labels metrics.
	Job string

	// DebugTimings logs the duration of every write.
	DebugTimings bool
}

// Run processes recs in order and stops at the first failure. The returned
// error carries the line of the offending record when known.
func (e *Engine) Run(ctx context.Context, recs []records.Record) (Result, error) {
	if e.Store == nil {
		return Result{}, fmt.Errorf("engine: Store is required")
	}
	logf := e.logger()

	res := Result{PerPartition: map[string]int{}}
	ensured := map[string]bool{}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		key := partition.Key(rec)
		if !ensured[key] {
			start := time.Now()
			if err := e.Store.EnsurePartition(ctx, key); err != nil {
				return res, records.WithLine(err, rec.Line)
			}
			ensured[key] = true
			logf("stage=ddl partition=%s ok duration=%s", key, durMS(start))
		}

		start := time.Now()
		if err := e.Store.WritePartition(ctx, key, rec); err != nil {
			metrics.RecordRow(e.Job, "rejected", 1)
			return res, records.WithLine(err, rec.Line)
		}
		if e.DebugTimings {
			logf("stage=write partition=%s line=%d duration=%s", key, rec.Line, time.Since(start))
		}

		res.Rows++
		res.PerPartition[key]++
	}

	res.Partitions = make([]string, 0, len(res.PerPartition))
	for k, n := range res.PerPartition {
		res.Partitions = append(res.Partitions, k)
		metrics.RecordPartitionRows(e.Job, k, int64(n))
	}
	sort.Strings(res.Partitions)
	metrics.RecordRow(e.Job, "inserted", int64(res.Rows))

	logf("stage=load ok rows=%d partitions=%d", res.Rows, len(res.Partitions))
	return res, nil
}

func (e *Engine) logger() func(format string, v ...any) {
	if e.Logger == nil {
		return log.New(io.Discard, "", 0).Printf
	}
	return e.Logger.Printf
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }
