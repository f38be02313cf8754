package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/henil-shah-98/incubyte-test/internal/records"
)

// Config is the minimal configuration needed to open a partition store.
//
// Edge cases:
//   - Kind must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
//   - An empty TablePrefix means partition.DefaultTablePrefix.
type Config struct {
	Kind        string
	DSN         string
	TablePrefix string
}

// PartitionReader is the read side of a partition store, used by reports.
type PartitionReader interface {
	// Partitions enumerates every partition key the store holds, sorted.
	// This includes partitions created by earlier runs.
	Partitions(ctx context.Context) ([]string, error)

	// ReadPartition returns all rows of a partition in insertion order. Each
	// row is aligned to records.Fields.
	ReadPartition(ctx context.Context, key string) ([][]any, error)
}

// PartitionStore is the schema-on-write sharding capability the pipeline
// needs: ensure a partition exists, write to it, enumerate and read back.
//
// A store is one session. Every write of a run happens inside a single
// transaction that Commit finalizes; Close without Commit discards the run's
// writes and leaves previously committed state untouched.
//
// Implementations are not required to be safe for concurrent use.
type PartitionStore interface {
	PartitionReader

	// EnsurePartition creates the partition's table if it does not exist.
	// Calling it again for the same key is a no-op and never alters rows.
	// Keys that are not valid identifiers fail with InvalidPartitionName.
	EnsurePartition(ctx context.Context, key string) error

	// WritePartition inserts rec into the partition named key. A customer id
	// already present in that partition fails with DuplicateKey.
	WritePartition(ctx context.Context, key string, rec records.Record) error

	// Commit makes the run's writes durable. It may be called once.
	Commit() error

	// Close releases the session, rolling back anything not committed.
	// Close must always be called, including after a failed run.
	Close() error
}

type factory func(ctx context.Context, cfg Config) (PartitionStore, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register makes a backend available under kind (e.g. "sqlite", "memory").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered. Failing fast
//     avoids ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens a PartitionStore using the registered backend factory.
//
// Errors:
//   - cfg.Kind empty or not registered.
//   - Whatever the backend factory returns (StorageUnavailable for open failures).
func New(ctx context.Context, cfg Config) (PartitionStore, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
