package multitable

// This file defines the JSON pipeline config: one file source, the pipe
// parser, one partition store and a report sink.

import (
	"errors"
	"fmt"

	"github.com/henil-shah-98/incubyte-test/internal/config"
	"github.com/henil-shah-98/incubyte-test/internal/parser/pipe"
	"github.com/henil-shah-98/incubyte-test/internal/partition"
	"github.com/henil-shah-98/incubyte-test/internal/report"
)

type Pipeline struct {
	Job     string        `json:"job"`
	Source  Source        `json:"source"`
	Parser  Parser        `json:"parser"`
	Storage Storage       `json:"storage"`
	Report  Report        `json:"report"`
	Runtime RuntimeConfig `json:"runtime"`
}

type Source struct {
	Kind string      `json:"kind"`
	File *FileSource `json:"file,omitempty"`
}

type FileSource struct {
	Path string `json:"path"`

	// Encoding of the input: "utf-8" (default), "windows-1252", "iso-8859-1".
	Encoding string `json:"encoding,omitempty"`
}

type Parser struct {
	Kind    string         `json:"kind"`
	Options config.Options `json:"options"`
}

type Storage struct {
	// Backend kind: "sqlite" | "memory"
	Kind string    `json:"kind"`
	DB   StorageDB `json:"db"`
}

type StorageDB struct {
	DSN string `json:"dsn"`

	// TablePrefix is prepended to every partition key. Default "table_".
	TablePrefix string `json:"table_prefix,omitempty"`
}

type Report struct {
	// Format: "text" (default) | "html" | "none"
	Format string `json:"format"`
}

// RuntimeConfig controls pipeline execution behavior.
type RuntimeConfig struct {
	// DebugTimings logs one line per partition write with its duration.
	DebugTimings bool `json:"debug_timings"`
}

// Default returns the pipeline the CLI runs without a config file: read
// ./input.txt, write ./etl.db, print a text report.
func Default() Pipeline {
	return Pipeline{
		Job:     "customers",
		Source:  Source{Kind: "file", File: &FileSource{Path: "./input.txt"}},
		Parser:  Parser{Kind: "pipe", Options: config.Options{}},
		Storage: Storage{Kind: "sqlite", DB: StorageDB{DSN: "./etl.db", TablePrefix: partition.DefaultTablePrefix}},
		Report:  Report{Format: string(report.FormatText)},
	}
}

// Validate checks the minimum shape the Runner needs and returns every
// problem found, joined, or nil.
func Validate(cfg Pipeline) error {
	var errs []error
	add := func(format string, v ...any) { errs = append(errs, fmt.Errorf(format, v...)) }

	if cfg.Source.Kind != "file" || cfg.Source.File == nil || cfg.Source.File.Path == "" {
		add("source.kind=file and source.file.path are required")
	} else if _, err := pipe.LookupEncoding(cfg.Source.File.Encoding); err != nil {
		add("source.file.encoding: %v", err)
	}

	if cfg.Parser.Kind != "pipe" {
		add("parser.kind must be pipe")
	} else if err := pipe.OptionsFrom(cfg.Parser.Options).Validate(); err != nil {
		add("parser.options: %v", err)
	}

	if cfg.Storage.Kind == "" {
		add("storage.kind must be set")
	}
	if p := cfg.Storage.DB.TablePrefix; p != "" {
		if err := partition.ValidatePrefix(p); err != nil {
			add("storage.db.table_prefix: %v", err)
		}
	}

	if _, err := report.ParseFormat(cfg.Report.Format); err != nil {
		add("report.format: %v", err)
	}

	return errors.Join(errs...)
}
