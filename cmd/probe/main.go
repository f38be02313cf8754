// Command probe inspects a pipe-delimited customer file without writing
// anything, and reports what an ingestion run of it would do.
//
// The whole file is scanned. Unlike cmd/etl, which stops at the first bad
// line, probe keeps going and lists every problem it can detect up front:
// header mismatches, malformed data lines, bad postal codes, partition keys
// that cannot become table names and repeated customer ids.
//
// Output modes
//
//   - Default mode: prints the JSON summary to stdout.
//   - Config mode (-emit-config): prints a pipeline config for cmd/etl that
//     would ingest the file, with encoding and parser options carried over.
//   - Report mode (-report): prints a short human-readable summary instead of
//     JSON.
//
// # DSN overrides
//
// The emitted config targets ./etl.db unless overridden. Precedence:
//  1. -dsn flag
//  2. DSN env var
//
// # Exit status
//
//	0  probe ran (and, with -strict, found no problems)
//	1  the input could not be read, or -strict and problems were found
//	2  usage error
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/henil-shah-98/incubyte-test/internal/parser/pipe"
	"github.com/henil-shah-98/incubyte-test/internal/probe"
)

func main() {
	var (
		// flagInput is the local path of the file to inspect.
		flagInput = flag.String("input", "", "path of the pipe-delimited input file")

		// flagEncoding is the source encoding; empty means UTF-8. When the UTF-8
		// reading shows replacement characters, the emitted config suggests
		// windows-1252 instead.
		flagEncoding = flag.String("encoding", "", "input encoding: utf-8, windows-1252, windows-1250, iso-8859-1")

		flagDelimiter    = flag.String("delimiter", pipe.DefaultDelimiter, "field delimiter")
		flagHeaderMarker = flag.String("header-marker", pipe.DefaultHeaderMarker, "prefix of header lines")
		flagDataMarker   = flag.String("data-marker", pipe.DefaultDataMarker, "prefix of data lines")

		// flagFinalHeader binds every data line to the last header in the file
		// instead of the header active when the line was read.
		flagFinalHeader = flag.Bool("bind-final-header", false, "bind all data lines to the final header line")

		flagMaxProblems = flag.Int("max-problems", probe.DefaultMaxProblems, "maximum number of problems to list")

		flagEmitConfig = flag.Bool("emit-config", false, "print a cmd/etl pipeline config instead of the summary")
		flagReport     = flag.Bool("report", false, "print a human-readable summary (suppresses JSON output)")
		flagPretty     = flag.Bool("pretty", true, "pretty-print JSON output")
		flagStrict     = flag.Bool("strict", false, "exit 1 when any problem is found")

		// flagDSN overrides the storage DSN in the emitted config.
		flagDSN = flag.String("dsn", "", "override storage DSN in the emitted config")
	)
	flag.Parse()

	if strings.TrimSpace(*flagInput) == "" {
		fmt.Fprintln(os.Stderr, "missing -input")
		flag.Usage()
		os.Exit(2)
	}

	opt := probe.Options{
		Parser: pipe.Options{
			Delimiter:       *flagDelimiter,
			HeaderMarker:    *flagHeaderMarker,
			DataMarker:      *flagDataMarker,
			BindFinalHeader: *flagFinalHeader,
		},
		Encoding:    *flagEncoding,
		MaxProblems: *flagMaxProblems,
	}

	f, err := os.Open(*flagInput)
	if err != nil {
		log.Fatalf("probe: %v", err)
	}
	defer f.Close()

	// Probing is a local scan; the timeout only guards against stuck reads
	// from pipes or network filesystems.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sum, err := probe.Probe(ctx, f, opt)
	if err != nil {
		log.Fatalf("probe: %v", err)
	}

	switch {
	case *flagReport:
		writeReport(os.Stdout, *flagInput, sum)
	case *flagEmitConfig:
		cfg := probe.SuggestPipeline(*flagInput, resolveDSN(*flagDSN), sum, opt)
		if err := encodeJSON(os.Stdout, cfg, *flagPretty); err != nil {
			log.Fatalf("encode config: %v", err)
		}
	default:
		if err := encodeJSON(os.Stdout, sum, *flagPretty); err != nil {
			log.Fatalf("encode summary: %v", err)
		}
	}

	if *flagStrict && !sum.OK() {
		os.Exit(1)
	}
}

// resolveDSN applies the override precedence: flag, then DSN env var. An
// empty result keeps the default DSN of the emitted config.
func resolveDSN(flagDSN string) string {
	if s := strings.TrimSpace(flagDSN); s != "" {
		return s
	}
	return strings.TrimSpace(os.Getenv("DSN"))
}

func encodeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// writeReport prints the summary for humans. The first line is always
// "probe: <path>" so scripts can anchor on it.
func writeReport(w io.Writer, path string, s *probe.Summary) {
	fmt.Fprintf(w, "probe: %s\n", path)
	fmt.Fprintf(w, "lines: %d (header=%d data=%d ignored=%d)\n", s.Lines, s.HeaderLines, s.DataLines, s.IgnoredLines)
	if s.InvalidUTF8Lines > 0 {
		fmt.Fprintf(w, "invalid utf-8 lines: %d (try -encoding windows-1252)\n", s.InvalidUTF8Lines)
	}
	fmt.Fprintf(w, "valid rows: %d\n", s.ValidRows)
	for _, k := range s.PartitionKeys() {
		fmt.Fprintf(w, "  %s\t%d\n", k, s.Partitions[k])
	}
	if s.OK() {
		fmt.Fprintln(w, "problems: none")
		return
	}
	fmt.Fprintf(w, "problems: %d\n", len(s.Problems))
	for _, p := range s.Problems {
		fmt.Fprintf(w, "  line %d: %s: %s\n", p.Line, p.Kind, p.Message)
	}
	if s.ProblemsTruncated {
		fmt.Fprintln(w, "  ... (truncated, raise -max-problems)")
	}
}
