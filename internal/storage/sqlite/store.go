// Package sqlite is the embedded SQL backend for partition stores. Each
// partition is a table named <prefix><key> in a single database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/henil-shah-98/incubyte-test/internal/partition"
	"github.com/henil-shah-98/incubyte-test/internal/records"
	"github.com/henil-shah-98/incubyte-test/internal/storage"
)

// Store implements storage.PartitionStore for SQLite.
//
// The store opens one transaction when it is created and keeps it for the
// whole run. DDL in SQLite is transactional, so tables created by a failed
// run disappear together with its rows.
type Store struct {
	db     *sql.DB
	tx     *sql.Tx
	prefix string
	done   bool
}

func init() {
	storage.Register("sqlite", Open)
}

// Open connects to cfg.DSN and starts the run transaction.
//
// Errors are StorageUnavailable: empty DSN, open, ping, or begin failures.
// An invalid table prefix is rejected before anything is opened.
func Open(ctx context.Context, cfg storage.Config) (storage.PartitionStore, error) {
	prefix := cfg.TablePrefix
	if prefix == "" {
		prefix = partition.DefaultTablePrefix
	}
	if err := partition.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, unavailable("open", errors.New("empty dsn"))
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, unavailable("open", err)
	}
	// One connection: the run transaction owns it, and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, unavailable("ping", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, unavailable("begin", err)
	}
	return &Store{db: db, tx: tx, prefix: prefix}, nil
}

// EnsurePartition creates the partition table if it is missing. Existing
// tables and their rows are left alone.
func (s *Store) EnsurePartition(ctx context.Context, key string) error {
	table, err := partition.TableName(s.prefix, key)
	if err != nil {
		return err
	}
	if s.tx == nil {
		return s.closedErr(key)
	}

	ddl := buildCreateTableSQL(storage.PartitionTable(table))
	if _, err := s.tx.ExecContext(ctx, ddl); err != nil {
		return &records.Error{Kind: records.KindStorageUnavailable, Partition: key, Msg: "create table " + table, Err: err}
	}
	return nil
}

// WritePartition inserts rec with bound parameters. A primary key or unique
// violation is reported as DuplicateKey carrying the partition and customer id.
func (s *Store) WritePartition(ctx context.Context, key string, rec records.Record) error {
	table, err := partition.TableName(s.prefix, key)
	if err != nil {
		return err
	}
	if s.tx == nil {
		return s.closedErr(key)
	}

	spec := storage.PartitionTable(table)
	if _, err := s.tx.ExecContext(ctx, buildInsertSQL(spec), rec.Values()...); err != nil {
		if isConstraint(err) {
			return &records.Error{
				Kind:      records.KindDuplicateKey,
				Line:      rec.Line,
				Partition: key,
				Key:       rec.CustomerID(),
				Msg:       "customer id already present in partition",
			}
		}
		return &records.Error{Kind: records.KindStorageUnavailable, Line: rec.Line, Partition: key, Msg: "insert into " + table, Err: err}
	}
	return nil
}

// Partitions lists every table that carries the prefix, including ones
// created by previous runs. Tables whose suffix is not a valid key are skipped.
func (s *Store) Partitions(ctx context.Context) ([]string, error) {
	rows, err := s.q().QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, unavailable("list tables", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable("list tables", err)
		}
		if key, ok := partition.KeyFromTable(s.prefix, name); ok {
			out = append(out, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list tables", err)
	}
	sort.Strings(out)
	return out, nil
}

// ReadPartition returns the rows of a partition in insertion (rowid) order.
func (s *Store) ReadPartition(ctx context.Context, key string) ([][]any, error) {
	table, err := partition.TableName(s.prefix, key)
	if err != nil {
		return nil, err
	}

	spec := storage.PartitionTable(table)
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", joinIdentList(spec.ColumnNames()), sqlIdent(table))
	rows, err := s.q().QueryContext(ctx, q)
	if err != nil {
		return nil, &records.Error{Kind: records.KindStorageUnavailable, Partition: key, Msg: "select from " + table, Err: err}
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(spec.Columns))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &records.Error{Kind: records.KindStorageUnavailable, Partition: key, Msg: "scan " + table, Err: err}
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, &records.Error{Kind: records.KindStorageUnavailable, Partition: key, Msg: "select from " + table, Err: err}
	}
	return out, nil
}

// Commit makes every write of the run durable. A second Commit fails.
func (s *Store) Commit() error {
	if s.tx == nil {
		return unavailable("commit", errors.New("no open transaction"))
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// Close rolls back an uncommitted run and closes the database. It is safe to
// call more than once.
func (s *Store) Close() error {
	if s.done {
		return nil
	}
	s.done = true

	var rbErr error
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			rbErr = err
		}
		s.tx = nil
	}
	if err := s.db.Close(); err != nil {
		return unavailable("close", err)
	}
	if rbErr != nil {
		return unavailable("rollback", rbErr)
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// q reads through the run transaction while it is open so uncommitted writes
// are visible.
func (s *Store) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *Store) closedErr(key string) error {
	return &records.Error{Kind: records.KindStorageUnavailable, Partition: key, Msg: "store has no open transaction"}
}

func unavailable(op string, err error) error {
	return &records.Error{Kind: records.KindStorageUnavailable, Msg: "sqlite " + op, Err: err}
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func buildCreateTableSQL(t storage.TableSpec) string {
	parts := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), c.Type)
		if c.PrimaryKey {
			col += " PRIMARY KEY"
		}
		if !c.Nullable && !c.PrimaryKey {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(t.Name), strings.Join(parts, ",\n  "))
}

func buildInsertSQL(t storage.TableSpec) string {
	placeholders := strings.TrimRight(strings.Repeat("?,", len(t.Columns)), ",")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", sqlIdent(t.Name), joinIdentList(t.ColumnNames()), placeholders)
}

func joinIdentList(columns []string) string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, sqlIdent(c))
	}
	return strings.Join(out, ", ")
}
