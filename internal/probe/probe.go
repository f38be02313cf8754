// Package probe inspects a customer input file without writing anything.
//
// Where Parse stops at the first bad line, Probe keeps going and collects
// every problem it can detect up front: header mismatches, malformed data
// lines, bad postal codes, partition keys that cannot become table names and
// customer ids repeated inside one partition. It also proposes a starting
// pipeline config for cmd/etl.
//
// Problems found by Probe are exactly the ones an ingestion run would abort
// on, except duplicates against rows already stored by earlier runs.
package probe

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/henil-shah-98/incubyte-test/internal/config"
	"github.com/henil-shah-98/incubyte-test/internal/multitable"
	"github.com/henil-shah-98/incubyte-test/internal/parser/pipe"
	"github.com/henil-shah-98/incubyte-test/internal/partition"
	"github.com/henil-shah-98/incubyte-test/internal/records"
	"github.com/henil-shah-98/incubyte-test/internal/transformer/builtin"
)

// DefaultMaxProblems caps the problem list so a badly broken file still
// produces a readable summary.
const DefaultMaxProblems = 100

// Options control the probe run.
type Options struct {
	Parser pipe.Options

	// Encoding of the input; see pipe.LookupEncoding.
	Encoding string

	// MaxProblems bounds Summary.Problems. <= 0 means DefaultMaxProblems.
	MaxProblems int
}

// Problem is one line the ingestion run would reject.
type Problem struct {
	Line      int          `json:"line"`
	Kind      records.Kind `json:"kind"`
	Field     string       `json:"field,omitempty"`
	Partition string       `json:"partition,omitempty"`
	Key       string       `json:"key,omitempty"`
	Message   string       `json:"message"`
}

// Summary describes an input file.
type Summary struct {
	// Header is the last header line seen; HeaderLine is its line number.
	Header     []string `json:"header"`
	HeaderLine int      `json:"header_line"`

	Lines        int `json:"lines"`
	HeaderLines  int `json:"header_lines"`
	DataLines    int `json:"data_lines"`
	IgnoredLines int `json:"ignored_lines"`

	// InvalidUTF8Lines counts lines whose bytes did not decode cleanly and
	// came out with U+FFFD replacements. A non-zero count on a UTF-8 read
	// usually means the file needs a legacy encoding.
	InvalidUTF8Lines int `json:"invalid_utf8_lines"`

	// ValidRows counts data lines that would be written.
	ValidRows int `json:"valid_rows"`

	// Partitions maps partition key to valid row count.
	Partitions map[string]int `json:"partitions"`

	Problems          []Problem `json:"problems"`
	ProblemsTruncated bool      `json:"problems_truncated,omitempty"`
}

// OK reports whether an ingestion run of the file would succeed against an
// empty store.
func (s *Summary) OK() bool { return len(s.Problems) == 0 && !s.ProblemsTruncated }

// PartitionKeys returns the partition keys in sorted order.
func (s *Summary) PartitionKeys() []string {
	out := make([]string, 0, len(s.Partitions))
	for k := range s.Partitions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// firstSeen remembers where a customer id first appeared and the
// fingerprint of that row, so exact re-sends can be told apart from
// conflicting rows.
type firstSeen struct {
	line int
	sum  string
}

type prober struct {
	s      *Summary
	max    int
	seen   map[string]map[string]firstSeen // folded table identifier -> customer id
	schema *pipe.Schema
}

func (p *prober) add(pr Problem) {
	if len(p.s.Problems) >= p.max {
		p.s.ProblemsTruncated = true
		return
	}
	p.s.Problems = append(p.s.Problems, pr)
}

func (p *prober) addErr(err error, line int) {
	pr := Problem{Line: line, Message: err.Error()}
	if re, ok := records.AsError(err); ok {
		pr.Kind = re.Kind
		pr.Field = re.Field
		pr.Partition = re.Partition
		pr.Key = re.Key
		pr.Message = re.Msg
		if re.Line > 0 {
			pr.Line = re.Line
		}
	}
	p.add(pr)
}

// Probe scans r and returns its summary. Only read failures (InputUnreadable)
// and invalid options are returned as errors; everything else is a Problem.
func Probe(ctx context.Context, r io.Reader, opt Options) (*Summary, error) {
	if err := opt.Parser.Validate(); err != nil {
		return nil, err
	}
	in, err := pipe.NewDecodingReader(r, opt.Encoding)
	if err != nil {
		return nil, err
	}

	limit := opt.MaxProblems
	if limit <= 0 {
		limit = DefaultMaxProblems
	}
	p := &prober{
		s:    &Summary{Partitions: map[string]int{}},
		max:  limit,
		seen: map[string]map[string]firstSeen{},
	}

	var pending []pipe.Line
	err = pipe.Scan(ctx, in, opt.Parser, func(ln pipe.Line) error {
		p.s.Lines++
		for _, f := range ln.Fields {
			if strings.ContainsRune(f, utf8.RuneError) {
				p.s.InvalidUTF8Lines++
				break
			}
		}

		switch ln.Kind {
		case pipe.LineHeader:
			p.s.HeaderLines++
			p.header(ln)
		case pipe.LineData:
			p.s.DataLines++
			if opt.Parser.BindFinalHeader {
				pending = append(pending, ln)
				return nil
			}
			p.data(ln)
		default:
			p.s.IgnoredLines++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ln := range pending {
		p.data(ln)
	}
	return p.s, nil
}

func (p *prober) header(ln pipe.Line) {
	p.s.Header = append([]string(nil), ln.Fields...)
	p.s.HeaderLine = ln.Num

	s, err := pipe.NewSchema(ln.Fields, ln.Num)
	if err != nil {
		p.addErr(err, ln.Num)
		p.schema = nil
		return
	}
	p.schema = s
}

func (p *prober) data(ln pipe.Line) {
	if p.schema == nil {
		// A broken header was already reported; don't repeat it per row.
		if p.s.HeaderLines > 0 {
			return
		}
		p.add(Problem{Line: ln.Num, Kind: records.KindSchemaMismatch, Message: "data line before any header line"})
		return
	}

	rec, err := p.schema.Bind(ln.Fields, ln.Num)
	if err != nil {
		p.addErr(err, ln.Num)
		return
	}
	if err := builtin.DefaultCoerce.Apply(rec); err != nil {
		p.addErr(err, ln.Num)
		return
	}

	key := partition.Key(rec)
	// Tables are looked up case-insensitively, so rows are grouped by the
	// folded identifier their partition table gets.
	ident, err := partition.FoldedIdent(key)
	if err != nil {
		p.addErr(err, ln.Num)
		return
	}

	ids := p.seen[ident]
	if ids == nil {
		ids = map[string]firstSeen{}
		p.seen[ident] = ids
	}
	id := rec.CustomerID()
	sum := builtin.DefaultFingerprint.Sum(rec)
	if first, dup := ids[id]; dup {
		msg := "customer id first seen on line " + strconv.Itoa(first.line)
		if first.sum == sum {
			msg += " (identical row)"
		}
		p.add(Problem{
			Line:      ln.Num,
			Kind:      records.KindDuplicateKey,
			Partition: key,
			Key:       id,
			Message:   msg,
		})
		return
	}
	ids[id] = firstSeen{line: ln.Num, sum: sum}

	p.s.ValidRows++
	p.s.Partitions[key]++
}

// SuggestPipeline returns a pipeline config that would ingest the probed
// file at path into dsn. The encoding falls back to windows-1252 when the
// UTF-8 reading produced invalid text.
func SuggestPipeline(path, dsn string, s *Summary, opt Options) multitable.Pipeline {
	cfg := multitable.Default()
	cfg.Source.File.Path = path
	cfg.Source.File.Encoding = opt.Encoding
	if s != nil && s.InvalidUTF8Lines > 0 && (opt.Encoding == "" || opt.Encoding == "utf-8") {
		cfg.Source.File.Encoding = "windows-1252"
	}
	if dsn != "" {
		cfg.Storage.DB.DSN = dsn
	}

	po := config.Options{}
	if d := opt.Parser.Delimiter; d != "" && d != pipe.DefaultDelimiter {
		po["delimiter"] = d
	}
	if m := opt.Parser.HeaderMarker; m != "" && m != pipe.DefaultHeaderMarker {
		po["header_marker"] = m
	}
	if m := opt.Parser.DataMarker; m != "" && m != pipe.DefaultDataMarker {
		po["data_marker"] = m
	}
	if opt.Parser.BindFinalHeader {
		po["bind_final_header"] = true
	}
	cfg.Parser.Options = po
	return cfg
}
