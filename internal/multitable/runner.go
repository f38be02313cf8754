package multitable

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/henil-shah-98/incubyte-test/internal/metrics"
	"github.com/henil-shah-98/incubyte-test/internal/parser/pipe"
	"github.com/henil-shah-98/incubyte-test/internal/records"
	"github.com/henil-shah-98/incubyte-test/internal/report"
	"github.com/henil-shah-98/incubyte-test/internal/storage"
)

// Runner wires one ingestion run: read and parse the input, route every
// record into its partition, commit once, then print the report.
//
// The fields are seams; NewDefaultRunner fills them with production values.
type Runner struct {
	// OpenInput opens the source file.
	OpenInput func(path string) (io.ReadCloser, error)

	// NewStore opens the partition store. Backends are looked up by kind.
	NewStore func(ctx context.Context, cfg storage.Config) (storage.PartitionStore, error)

	// NewLogger builds the run logger on top of LogOutput.
	NewLogger func(w io.Writer) Logger

	// ExpandEnv expands ${VAR} references in the DSN.
	ExpandEnv func(string) string

	NewRunID func() string

	// LogOutput receives log lines. Nil discards them.
	LogOutput io.Writer
}

func NewDefaultRunner() *Runner {
	return &Runner{
		OpenInput: func(path string) (io.ReadCloser, error) { return os.Open(path) },
		NewStore:  storage.New,
		NewLogger: func(w io.Writer) Logger { return log.New(w, "etl: ", log.LstdFlags|log.Lmsgprefix) },
		ExpandEnv: os.ExpandEnv,
		NewRunID:  uuid.NewString,
	}
}

// Run executes cfg and writes the report to out.
//
// All writes happen in a single store transaction: either every record of
// the input is committed or none is. The store is closed on every path.
func (r *Runner) Run(ctx context.Context, cfg Pipeline, out io.Writer) (res Result, err error) {
	if err := Validate(cfg); err != nil {
		return Result{}, err
	}
	format, _ := report.ParseFormat(cfg.Report.Format)

	runID := r.newRunID()
	lg := r.logger()
	logf := lg.Printf
	job := cfg.Job
	if job == "" {
		job = "etl"
	}
	logf("run=%s job=%s start input=%s storage=%s", runID, job, cfg.Source.File.Path, cfg.Storage.Kind)

	// parse
	start := time.Now()
	recs, err := r.parse(ctx, cfg)
	metrics.RecordStep(job, "parse", err, time.Since(start))
	if err != nil {
		return Result{RunID: runID}, err
	}
	metrics.RecordRow(job, "parsed", int64(len(recs)))
	logf("stage=parse ok records=%d duration=%s", len(recs), durMS(start))

	store, err := r.NewStore(ctx, storage.Config{
		Kind:        cfg.Storage.Kind,
		DSN:         r.expandEnv(cfg.Storage.DB.DSN),
		TablePrefix: cfg.Storage.DB.TablePrefix,
	})
	if err != nil {
		return Result{RunID: runID}, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()

	// load
	start = time.Now()
	engine := &Engine{Store: store, Logger: lg, Job: job, DebugTimings: cfg.Runtime.DebugTimings}
	res, err = engine.Run(ctx, recs)
	res.RunID = runID
	metrics.RecordStep(job, "load", err, time.Since(start))
	if err != nil {
		logf("run=%s stage=load failed kind=%s err=%v", runID, records.KindOf(err), err)
		return res, err
	}

	// commit
	start = time.Now()
	err = store.Commit()
	metrics.RecordStep(job, "commit", err, time.Since(start))
	if err != nil {
		return res, err
	}
	logf("stage=commit ok duration=%s", durMS(start))

	// report
	if format != report.FormatNone && out != nil {
		start = time.Now()
		err = report.Write(ctx, out, store, res.Partitions, report.Options{
			Format:      format,
			TablePrefix: cfg.Storage.DB.TablePrefix,
		})
		metrics.RecordStep(job, "report", err, time.Since(start))
		if err != nil {
			return res, err
		}
	}

	logf("run=%s done rows=%d partitions=%v", runID, res.Rows, res.Partitions)
	return res, nil
}

func (r *Runner) parse(ctx context.Context, cfg Pipeline) ([]records.Record, error) {
	f, err := r.OpenInput(cfg.Source.File.Path)
	if err != nil {
		return nil, &records.Error{Kind: records.KindInputUnreadable, Msg: "open " + cfg.Source.File.Path, Err: err}
	}
	defer f.Close()

	in, err := pipe.NewDecodingReader(f, cfg.Source.File.Encoding)
	if err != nil {
		return nil, err
	}
	return pipe.Parse(ctx, in, pipe.OptionsFrom(cfg.Parser.Options))
}

func (r *Runner) logger() Logger {
	w := r.LogOutput
	if w == nil {
		w = io.Discard
	}
	if r.NewLogger == nil {
		return log.New(w, "", 0)
	}
	return r.NewLogger(w)
}

func (r *Runner) expandEnv(s string) string {
	if r.ExpandEnv == nil {
		return s
	}
	return r.ExpandEnv(s)
}

func (r *Runner) newRunID() string {
	if r.NewRunID == nil {
		return uuid.NewString()
	}
	return r.NewRunID()
}
