// Command etl ingests a pipe-delimited customer file into per-country tables
// and prints a report of the partitions it touched.
//
//	etl                                 # ./input.txt -> ./etl.db, text report
//	etl -input data.txt -db /tmp/c.db
//	etl -config pipeline.json -report html > report.html
//	etl -dry-run -input data.txt        # in-memory store, nothing persisted
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/henil-shah-98/incubyte-test/internal/metrics"
	"github.com/henil-shah-98/incubyte-test/internal/metrics/datadog"
	"github.com/henil-shah-98/incubyte-test/internal/metrics/prompush"
	"github.com/henil-shah-98/incubyte-test/internal/multitable"
	"github.com/henil-shah-98/incubyte-test/internal/records"

	// Storage backends register themselves with the storage factory.
	_ "github.com/henil-shah-98/incubyte-test/internal/storage/memory"
	_ "github.com/henil-shah-98/incubyte-test/internal/storage/sqlite"
)

const usageLine = "usage: etl [-config pipeline.json] [-input path] [-db path] [-report text|html|none] [-dry-run] [-metrics-backend none|datadog|pushgateway] [-v]"

// runner is the part of multitable.Runner the CLI depends on.
type runner interface {
	Run(ctx context.Context, cfg multitable.Pipeline, out io.Writer) (multitable.Result, error)
}

// metricsBackend is what initMetrics needs from a constructed backend.
// Both the Datadog and Pushgateway backends push once more on Close.
type metricsBackend interface {
	Close() error
}

// appDeps are the side-effecting collaborators of runMain.
type appDeps struct {
	readFile    func(path string) ([]byte, error)
	unmarshal   func(data []byte, v any) error
	newRunner   func(logOutput io.Writer) runner
	initMetrics func(ctx context.Context, jobName, backendName string) (func(), error)
}

func defaultDeps() appDeps {
	return appDeps{
		readFile:  os.ReadFile,
		unmarshal: json.Unmarshal,
		newRunner: func(logOutput io.Writer) runner {
			r := multitable.NewDefaultRunner()
			r.LogOutput = logOutput
			return r
		},
		initMetrics: initMetrics,
	}
}

// Seams for tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	newPushgatewayBackend = func(job, gatewayURL string) (metricsBackend, error) {
		return prompush.NewBackend(job, gatewayURL)
	}
	setMetricsBackend = func(b any) {
		if mb, ok := b.(metrics.Backend); ok {
			metrics.SetBackend(mb)
		}
	}
	logPrintf = log.Printf
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// runMain is main without the process: it returns the exit code.
//
//	0  success, report on stdout
//	1  config or pipeline failure, one structured line on stderr
//	2  usage error
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath      = fs.String("config", "", "pipeline config JSON path (default: built-in defaults)")
		input        = fs.String("input", "", "input file (overrides source.file.path)")
		dbPath       = fs.String("db", "", "SQLite database path (overrides storage.db.dsn)")
		reportFmt    = fs.String("report", "", "report format: text, html or none (overrides report.format)")
		dryRun       = fs.Bool("dry-run", false, "load into a throwaway in-memory store")
		validateOnly = fs.Bool("validate", false, "validate the configuration and exit")
		metricsFlag  = fs.String("metrics-backend", "", "metrics backend: none, datadog or pushgateway (default $METRICS_BACKEND)")
		verbose      = fs.Bool("v", false, "log progress to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments %q\n%s\n", fs.Args(), usageLine)
		return 2
	}
	configSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configSet = true
		}
	})
	if configSet && strings.TrimSpace(*cfgPath) == "" {
		fmt.Fprintln(stderr, usageLine)
		return 2
	}

	cfg := multitable.Default()
	if configSet {
		raw, err := deps.readFile(*cfgPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: read config: %v\n", err)
			return 1
		}
		cfg = multitable.Pipeline{}
		if err := deps.unmarshal(raw, &cfg); err != nil {
			fmt.Fprintf(stderr, "error: parse config: %v\n", err)
			return 1
		}
	}
	applyOverrides(&cfg, *input, *dbPath, *reportFmt, *dryRun)

	if *validateOnly {
		if err := multitable.Validate(cfg); err != nil {
			fmt.Fprintf(stderr, "error: invalid config: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "config ok")
		return 0
	}

	backendName := *metricsFlag
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	cleanup, err := deps.initMetrics(ctx, jobName(cfg), backendName)
	if err != nil {
		fmt.Fprintf(stderr, "error: init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	var logOut io.Writer
	if *verbose {
		logOut = stderr
	}

	start := time.Now()
	res, err := deps.newRunner(logOut).Run(ctx, cfg, stdout)
	if err != nil {
		fmt.Fprintln(stderr, formatError(err))
		return 1
	}
	if *verbose {
		fmt.Fprintf(stderr, "etl: run=%s rows=%d partitions=%d completed in %s\n",
			res.RunID, res.Rows, len(res.Partitions), time.Since(start).Truncate(time.Millisecond))
	}
	return 0
}

// applyOverrides lets flags win over the config file.
func applyOverrides(cfg *multitable.Pipeline, input, dbPath, reportFmt string, dryRun bool) {
	if input != "" {
		if cfg.Source.Kind == "" {
			cfg.Source.Kind = "file"
		}
		if cfg.Source.File == nil {
			cfg.Source.File = &multitable.FileSource{}
		}
		cfg.Source.File.Path = input
	}
	if dbPath != "" {
		cfg.Storage.DB.DSN = dbPath
	}
	if reportFmt != "" {
		cfg.Report.Format = reportFmt
	}
	if dryRun {
		cfg.Storage.Kind = "memory"
		cfg.Storage.DB.DSN = ""
	}
}

func jobName(cfg multitable.Pipeline) string {
	if cfg.Job == "" {
		return "etl_job"
	}
	return cfg.Job
}

// formatError renders err as one line:
//
//	error: kind=DuplicateKey line=3 partition="US" key="C1": customer id already present in partition
//
// A records.Error anywhere in the chain is printed with its own formatting.
func formatError(err error) string {
	if re, ok := records.AsError(err); ok {
		return "error: kind=" + re.Error()
	}
	return "error: " + err.Error()
}

// initMetrics installs the named backend and returns its cleanup. cleanup is
// never nil, even on error.
func initMetrics(ctx context.Context, job, backendName string) (func(), error) {
	noop := func() {}

	switch strings.ToLower(strings.TrimSpace(backendName)) {
	case "", "none", "noop":
		return noop, nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    job,
			Tags:       datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			return noop, err
		}
		setMetricsBackend(b)
		// Close stops the flush loop and submits what is still buffered.
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
		}, nil

	case "pushgateway", "prom":
		gwURL := os.Getenv("PUSHGATEWAY_URL")
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := newPushgatewayBackend(job, gwURL)
		if err != nil {
			return noop, err
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: pushgateway close error: %v", err)
			}
		}, nil

	default:
		return noop, fmt.Errorf("unknown metrics backend %q (want none|datadog|pushgateway)", backendName)
	}
}
