// Package ledger records every issued entity together with an audit row and
// answers the duplicate, capacity and reuse queries the service runs.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// ErrDuplicate is returned when an audit record id is written twice.
var ErrDuplicate = errors.New("audit record already exists")

//go:generate go run go.uber.org/mock/mockgen -destination ledgermock/ledger.go -package ledgermock pkg.jsn.cam/synthgen/internal/ledger Ledger

// Ledger persists issued entities. An empty processID in a query means
// "every process".
type Ledger interface {
	// Issue stores the entity (first payload wins for a given kind and hash)
	// and appends rec in one transaction. The result tells which partition
	// counts the new row grew.
	Issue(ctx context.Context, e *synthgen.Entity, rec Record) (Fresh, error)

	Exists(ctx context.Context, kind synthgen.Kind, hash, processID string) (bool, error)

	// Count returns the number of distinct hashes issued in a partition.
	Count(ctx context.Context, kind synthgen.Kind, partition, processID string) (int64, error)

	// Lookup returns the distinct entities issued under q, oldest first
	// by creation time then id.
	Lookup(ctx context.Context, q LookupQuery) ([]*synthgen.Entity, error)

	Close() error
}

// Fresh reports whether an issued hash was new to its partition.
type Fresh struct {
	// Partition is set when no process held the hash in the partition.
	Partition bool
	// Process is set when the record's process did not hold it.
	Process bool
}

// Record is one audit row. Reuse order is CreatedAt, then ID.
type Record struct {
	ID        string        `json:"id"`
	ProcessID string        `json:"processId"`
	Kind      synthgen.Kind `json:"kind"`
	Hash      string        `json:"hash"`
	Partition string        `json:"partition"`
	BlurID    string        `json:"blurId"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NewRecord builds the audit row for e.
func NewRecord(e *synthgen.Entity, kind synthgen.Kind, partition, blurID, processID string, now time.Time) Record {
	return Record{
		ID:        xid.NewWithTime(now).String(),
		ProcessID: processID,
		Kind:      kind,
		Hash:      e.Hash,
		Partition: partition,
		BlurID:    blurID,
		CreatedAt: now.UTC(),
	}
}

// orderLayout renders CreatedAt fixed width so it sorts as text.
const orderLayout = "2006-01-02T15:04:05.000000000Z"

// OrderKey is CreatedAt in a fixed-width UTC form that sorts like the time.
func (rec Record) OrderKey() string {
	return rec.CreatedAt.UTC().Format(orderLayout)
}

// Check verifies that rec describes e.
func (rec Record) Check(e *synthgen.Entity) error {
	switch {
	case rec.ID == "":
		return errors.New("audit record has no id")
	case rec.Kind == "":
		return errors.New("audit record has no kind")
	case rec.Hash != e.Hash:
		return fmt.Errorf("audit record hash %s does not match entity hash %s", rec.Hash, e.Hash)
	}
	return nil
}

// LookupQuery selects previously issued entities for reuse.
type LookupQuery struct {
	Kind   synthgen.Kind
	BlurID string
	// ProcessID restricts to one process; empty means all.
	ProcessID string
	// Partition restricts to one capacity partition; empty means any.
	Partition string
	// Limit caps the result; zero means no limit.
	Limit int
}

// Matches reports whether rec satisfies the process and partition filters.
func (q LookupQuery) Matches(rec Record) bool {
	if q.ProcessID != "" && rec.ProcessID != q.ProcessID {
		return false
	}
	if q.Partition != "" && rec.Partition != q.Partition {
		return false
	}
	return rec.Kind == q.Kind && rec.BlurID == q.BlurID
}

// AllProcesses is the process filter value meaning "no filter".
const AllProcesses = ""

// ScopeFilter derives the process filter used by both the existence check and
// the capacity count. enabled is false for ScopeNone, where neither runs.
func ScopeFilter(scope synthgen.Scope, processID string) (filter string, enabled bool) {
	switch scope {
	case synthgen.ScopeProcess:
		return processID, true
	case synthgen.ScopeProcessAll:
		return AllProcesses, true
	default:
		return AllProcesses, false
	}
}
