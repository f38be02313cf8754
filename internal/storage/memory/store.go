// Package memory is an in-process partition store. Stores opened with the same
// DSN share committed state for the life of the process, which makes reruns
// observable in tests without touching disk.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/henil-shah-98/incubyte-test/internal/partition"
	"github.com/henil-shah-98/incubyte-test/internal/records"
	"github.com/henil-shah-98/incubyte-test/internal/storage"
)

func init() {
	storage.Register("memory", Open)
}

type table struct {
	rows [][]any
	ids  map[string]struct{}
}

func (t *table) clone() *table {
	c := &table{rows: make([][]any, len(t.rows)), ids: make(map[string]struct{}, len(t.ids))}
	copy(c.rows, t.rows)
	for id := range t.ids {
		c.ids[id] = struct{}{}
	}
	return c
}

type database struct {
	mu     sync.Mutex
	tables map[string]*table
}

var (
	dbMu sync.Mutex
	dbs  = map[string]*database{}
)

func lookup(dsn string) *database {
	dbMu.Lock()
	defer dbMu.Unlock()
	db, ok := dbs[dsn]
	if !ok {
		db = &database{tables: map[string]*table{}}
		dbs[dsn] = db
	}
	return db
}

// Store stages every change of a run in a private copy of the database and
// publishes it on Commit.
type Store struct {
	db      *database
	prefix  string
	staged  map[string]*table
	touched map[string]bool
	done    bool
}

// Open returns a session on the named in-process database. An empty DSN gets
// a fresh private database.
func Open(_ context.Context, cfg storage.Config) (storage.PartitionStore, error) {
	prefix := cfg.TablePrefix
	if prefix == "" {
		prefix = partition.DefaultTablePrefix
	}
	if err := partition.ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	var db *database
	if cfg.DSN == "" {
		db = &database{tables: map[string]*table{}}
	} else {
		db = lookup(cfg.DSN)
	}

	db.mu.Lock()
	staged := make(map[string]*table, len(db.tables))
	for name, t := range db.tables {
		staged[name] = t
	}
	db.mu.Unlock()

	return &Store{db: db, prefix: prefix, staged: staged, touched: map[string]bool{}}, nil
}

func (s *Store) EnsurePartition(_ context.Context, key string) error {
	name, err := partition.TableName(s.prefix, key)
	if err != nil {
		return err
	}
	if s.done {
		return closed(key)
	}
	if _, ok := s.staged[name]; !ok {
		s.staged[name] = &table{ids: map[string]struct{}{}}
		s.touched[name] = true
	}
	return nil
}

func (s *Store) WritePartition(_ context.Context, key string, rec records.Record) error {
	name, err := partition.TableName(s.prefix, key)
	if err != nil {
		return err
	}
	if s.done {
		return closed(key)
	}
	t, ok := s.staged[name]
	if !ok {
		return &records.Error{Kind: records.KindStorageUnavailable, Line: rec.Line, Partition: key, Msg: "no such table " + name}
	}
	// Copy on first write so committed state is never mutated in place.
	if !s.touched[name] {
		t = t.clone()
		s.staged[name] = t
		s.touched[name] = true
	}

	id := rec.CustomerID()
	if _, dup := t.ids[id]; dup {
		return &records.Error{
			Kind:      records.KindDuplicateKey,
			Line:      rec.Line,
			Partition: key,
			Key:       id,
			Msg:       "customer id already present in partition",
		}
	}
	t.ids[id] = struct{}{}
	t.rows = append(t.rows, rec.Values())
	return nil
}

func (s *Store) Partitions(context.Context) ([]string, error) {
	out := make([]string, 0, len(s.staged))
	for name := range s.staged {
		if key, ok := partition.KeyFromTable(s.prefix, name); ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ReadPartition(_ context.Context, key string) ([][]any, error) {
	name, err := partition.TableName(s.prefix, key)
	if err != nil {
		return nil, err
	}
	t, ok := s.staged[name]
	if !ok {
		return nil, &records.Error{Kind: records.KindStorageUnavailable, Partition: key, Msg: "no such table " + name}
	}
	out := make([][]any, len(t.rows))
	for i, row := range t.rows {
		out[i] = append([]any(nil), row...)
	}
	return out, nil
}

func (s *Store) Commit() error {
	if s.done {
		return &records.Error{Kind: records.KindStorageUnavailable, Msg: "memory commit: no open transaction"}
	}
	s.db.mu.Lock()
	for name := range s.touched {
		s.db.tables[name] = s.staged[name]
	}
	s.db.mu.Unlock()
	s.done = true
	return nil
}

// Close drops uncommitted changes. Reads keep working on the last staged view.
func (s *Store) Close() error {
	s.done = true
	s.touched = map[string]bool{}
	return nil
}

func closed(key string) error {
	return &records.Error{Kind: records.KindStorageUnavailable, Partition: key, Msg: "store has no open transaction"}
}
