// Package sqlite implements the ledger on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	_ "github.com/glebarez/go-sqlite"

	"pkg.jsn.cam/synthgen/internal/ledger"
	"pkg.jsn.cam/synthgen/pkg/storage"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		kind    TEXT NOT NULL,
		hash    TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (kind, hash)
	)`,
	`CREATE TABLE IF NOT EXISTS audit (
		id            TEXT PRIMARY KEY,
		process_id    TEXT NOT NULL,
		kind          TEXT NOT NULL,
		hash          TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		blur_id       TEXT NOT NULL,
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_hash_idx ON audit (kind, hash, process_id)`,
	`CREATE INDEX IF NOT EXISTS audit_partition_idx ON audit (kind, partition_key, process_id, hash)`,
	`CREATE INDEX IF NOT EXISTS audit_blur_idx ON audit (kind, blur_id, created_at, id)`,
}

// Ledger stores entities and audit rows in SQLite.
type Ledger struct {
	db     *sql.DB
	lock   *storage.Lock
	sq     squirrel.StatementBuilderType
	logger *slog.Logger
}

var _ ledger.Ledger = (*Ledger)(nil)

// Open opens or creates the database at path. File databases are guarded by
// path+".lock" for the lifetime of the ledger.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var lock *storage.Lock
	if path != MemoryDSN {
		var err error
		if lock, err = storage.AcquireLock(ctx, path+".lock"); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		releaseLock(lock)
		return nil, synthgen.StorageError("open sqlite", err)
	}
	// SQLite serializes writers; a single connection also keeps an in-memory
	// database alive and shared.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			releaseLock(lock)
			return nil, synthgen.StorageError("migrate sqlite", err)
		}
	}

	return &Ledger{
		db:     db,
		lock:   lock,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: logger.With("module", "ledger", "driver", "sqlite"),
	}, nil
}

func releaseLock(lock *storage.Lock) {
	if lock != nil {
		lock.Release()
	}
}

func (l *Ledger) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+4)
	fields = append(fields, "event", event, "error", err.Error())
	fields = append(fields, attrs...)
	l.logger.Error("sqlite ledger operation failed", fields...)
	return err
}

func (l *Ledger) Issue(ctx context.Context, e *synthgen.Entity, rec ledger.Record) (ledger.Fresh, error) {
	if err := rec.Check(e); err != nil {
		return ledger.Fresh{}, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Fresh{}, synthgen.StorageError("issue", err)
	}
	defer tx.Rollback()

	query, args, err := l.sq.Select("COUNT(*)").From("audit").Where(squirrel.Eq{"id": rec.ID}).ToSql()
	if err != nil {
		return ledger.Fresh{}, err
	}
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return ledger.Fresh{}, synthgen.StorageError("issue", l.logError("ledger.issue", err, "kind", rec.Kind))
	}
	if n > 0 {
		return ledger.Fresh{}, ledger.ErrDuplicate
	}

	query, args, err = l.sq.Select("COUNT(*)").
		Column(squirrel.Expr("COALESCE(SUM(CASE WHEN process_id = ? THEN 1 ELSE 0 END), 0)", rec.ProcessID)).
		From("audit").
		Where(squirrel.Eq{"kind": string(rec.Kind), "hash": rec.Hash, "partition_key": rec.Partition}).
		ToSql()
	if err != nil {
		return ledger.Fresh{}, err
	}
	var inPartition, inProcess int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&inPartition, &inProcess); err != nil {
		return ledger.Fresh{}, synthgen.StorageError("issue", l.logError("ledger.issue", err, "kind", rec.Kind))
	}
	fresh := ledger.Fresh{Partition: inPartition == 0, Process: inProcess == 0}

	inserts := []squirrel.InsertBuilder{
		l.sq.Insert("entities").Options("OR IGNORE").
			Columns("kind", "hash", "payload").
			Values(string(rec.Kind), rec.Hash, e.Raw()),
		l.sq.Insert("audit").
			Columns("id", "process_id", "kind", "hash", "partition_key", "blur_id", "created_at").
			Values(rec.ID, rec.ProcessID, string(rec.Kind), rec.Hash, rec.Partition, rec.BlurID, rec.OrderKey()),
	}
	for _, ins := range inserts {
		query, args, err := ins.ToSql()
		if err != nil {
			return ledger.Fresh{}, err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return ledger.Fresh{}, synthgen.StorageError("issue", l.logError("ledger.issue", err, "kind", rec.Kind))
		}
	}

	if err := tx.Commit(); err != nil {
		return ledger.Fresh{}, synthgen.StorageError("issue", err)
	}
	return fresh, nil
}

func scoped(where squirrel.Eq, processID string) squirrel.Eq {
	if processID != ledger.AllProcesses {
		where["process_id"] = processID
	}
	return where
}

func (l *Ledger) Exists(ctx context.Context, kind synthgen.Kind, hash, processID string) (bool, error) {
	query, args, err := l.sq.Select("1").From("audit").
		Where(scoped(squirrel.Eq{"kind": string(kind), "hash": hash}, processID)).
		Limit(1).ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case err != nil:
		return false, synthgen.StorageError("exists", l.logError("ledger.exists", err, "kind", kind))
	}
	return true, nil
}

func (l *Ledger) Count(ctx context.Context, kind synthgen.Kind, partition, processID string) (int64, error) {
	query, args, err := l.sq.Select("COUNT(DISTINCT hash)").From("audit").
		Where(scoped(squirrel.Eq{"kind": string(kind), "partition_key": partition}, processID)).
		ToSql()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, synthgen.StorageError("count", l.logError("ledger.count", err, "kind", kind, "partition", partition))
	}
	return n, nil
}

func (l *Ledger) Lookup(ctx context.Context, q ledger.LookupQuery) ([]*synthgen.Entity, error) {
	where := squirrel.Eq{"a.kind": string(q.Kind), "a.blur_id": q.BlurID}
	if q.ProcessID != ledger.AllProcesses {
		where["a.process_id"] = q.ProcessID
	}
	if q.Partition != "" {
		where["a.partition_key"] = q.Partition
	}

	query, args, err := l.sq.Select("a.hash", "e.payload").
		From("audit a").
		Join("entities e ON e.kind = a.kind AND e.hash = a.hash").
		Where(where).
		OrderBy("a.created_at", "a.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, synthgen.StorageError("lookup", l.logError("ledger.lookup", err, "kind", q.Kind))
	}
	defer rows.Close()

	var out []*synthgen.Entity
	seen := make(map[string]bool)
	for rows.Next() {
		var hash string
		var payload []byte
		if err := rows.Scan(&hash, &payload); err != nil {
			return nil, synthgen.StorageError("lookup", err)
		}
		if seen[hash] {
			continue
		}
		e, err := synthgen.LoadEntity(hash, payload)
		if err != nil {
			return nil, fmt.Errorf("lookup: %w", err)
		}
		seen[hash] = true
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, synthgen.StorageError("lookup", err)
	}
	return out, nil
}

func (l *Ledger) Close() error {
	err := l.db.Close()
	if l.lock != nil {
		err = errors.Join(err, l.lock.Release())
	}
	return err
}
