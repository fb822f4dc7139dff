package ledger

import (
	"context"
	"errors"
	"log/slog"

	"pkg.jsn.cam/synthgen/pkg/storage"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

var (
	entitiesBucket  = []byte("entities")
	auditBucket     = []byte("audit")
	hashIndex       = []byte("idx_hash")
	partitionIndex  = []byte("idx_partition")
	blurIndex       = []byte("idx_blur")
	errStopIterate  = errors.New("stop")
	emptyIndexValue = []byte{}
)

// KV is a Ledger over a bucketed key-value backend.
//
// Layout:
//
//	entities       kind|hash                 -> canonical payload JSON
//	audit          id                        -> Record JSON
//	idx_hash       kind|hash|process|id      -> partition
//	idx_partition  kind|partition|process|id -> hash
//	idx_blur       kind|blurid|created|id    -> ""
type KV struct {
	backend storage.Backend
	logger  *slog.Logger
}

// NewKV creates the ledger buckets on backend if needed.
func NewKV(backend storage.Backend, logger *slog.Logger) (*KV, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := storage.EnsureBuckets(backend, entitiesBucket, auditBucket, hashIndex, partitionIndex, blurIndex)
	if err != nil {
		return nil, synthgen.StorageError("init ledger", err)
	}
	return &KV{backend: backend, logger: logger.With("module", "ledger", "driver", "kv")}, nil
}

// Backend exposes the underlying store, for stats and compaction.
func (l *KV) Backend() storage.Backend {
	return l.backend
}

func (l *KV) Issue(ctx context.Context, e *synthgen.Entity, rec Record) (Fresh, error) {
	if err := ctx.Err(); err != nil {
		return Fresh{}, err
	}
	if err := rec.Check(e); err != nil {
		return Fresh{}, err
	}

	kind := string(rec.Kind)
	var fresh Fresh
	err := l.backend.Update(func(tx storage.Transaction) error {
		audit := tx.Bucket(auditBucket)
		if audit.Get([]byte(rec.ID)) != nil {
			return ErrDuplicate
		}
		if err := storage.PutJSON(audit, []byte(rec.ID), rec); err != nil {
			return err
		}

		var err error
		if fresh, err = freshness(tx.Bucket(hashIndex), rec); err != nil {
			return err
		}

		entities := tx.Bucket(entitiesBucket)
		entityKey := storage.Key(kind, rec.Hash)
		if entities.Get(entityKey) == nil {
			if err := entities.Put(entityKey, e.Raw()); err != nil {
				return err
			}
		}

		indexes := []struct {
			bucket     []byte
			key, value []byte
		}{
			{hashIndex, storage.Key(kind, rec.Hash, rec.ProcessID, rec.ID), []byte(rec.Partition)},
			{partitionIndex, storage.Key(kind, rec.Partition, rec.ProcessID, rec.ID), []byte(rec.Hash)},
			{blurIndex, storage.Key(kind, rec.BlurID, rec.OrderKey(), rec.ID), emptyIndexValue},
		}
		for _, idx := range indexes {
			if err := tx.Bucket(idx.bucket).Put(idx.key, idx.value); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrDuplicate) {
		return Fresh{}, err
	}
	if err != nil {
		l.logger.Error("issue failed", "event", "ledger.issue", "kind", kind, "error", err)
		return Fresh{}, synthgen.StorageError("issue", err)
	}
	return fresh, nil
}

// freshness walks the earlier issuances of rec's hash and reports whether any
// of them fell in rec's partition.
func freshness(hashes storage.Bucket, rec Record) (Fresh, error) {
	fresh := Fresh{Partition: true, Process: true}
	err := hashes.ForEachPrefix(storage.Prefix(string(rec.Kind), rec.Hash), func(k, v []byte) error {
		if string(v) != rec.Partition {
			return nil
		}
		fresh.Partition = false
		if parts := storage.SplitKey(k); len(parts) > 2 && parts[2] == rec.ProcessID {
			fresh.Process = false
			return errStopIterate
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIterate) {
		return Fresh{}, err
	}
	return fresh, nil
}

func (l *KV) Exists(ctx context.Context, kind synthgen.Kind, hash, processID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false
	err := l.backend.ForEachPrefix(hashIndex, scopedPrefix(processID, string(kind), hash), func(_, _ []byte) error {
		found = true
		return errStopIterate
	})
	if err != nil && !errors.Is(err, errStopIterate) {
		return false, synthgen.StorageError("exists", err)
	}
	return found, nil
}

func (l *KV) Count(ctx context.Context, kind synthgen.Kind, partition, processID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	hashes := make(map[string]struct{})
	err := l.backend.ForEachPrefix(partitionIndex, scopedPrefix(processID, string(kind), partition), func(_, v []byte) error {
		hashes[string(v)] = struct{}{}
		return nil
	})
	if err != nil {
		return 0, synthgen.StorageError("count", err)
	}
	return int64(len(hashes)), nil
}

func (l *KV) Lookup(ctx context.Context, q LookupQuery) ([]*synthgen.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*synthgen.Entity
	seen := make(map[string]bool)
	err := l.backend.View(func(tx storage.Transaction) error {
		audit := tx.Bucket(auditBucket)
		entities := tx.Bucket(entitiesBucket)

		return tx.Bucket(blurIndex).ForEachPrefix(storage.Prefix(string(q.Kind), q.BlurID), func(k, _ []byte) error {
			parts := storage.SplitKey(k)
			var rec Record
			if _, err := storage.GetJSON(audit, []byte(parts[len(parts)-1]), &rec); err != nil {
				return err
			}
			if !q.Matches(rec) || seen[rec.Hash] {
				return nil
			}

			raw := entities.Get(storage.Key(string(rec.Kind), rec.Hash))
			if raw == nil {
				l.logger.Warn("audit record without entity", "event", "ledger.lookup", "id", rec.ID, "hash", rec.Hash)
				return nil
			}
			e, err := synthgen.LoadEntity(rec.Hash, raw)
			if err != nil {
				return err
			}

			seen[rec.Hash] = true
			out = append(out, e)
			if q.Limit > 0 && len(out) >= q.Limit {
				return errStopIterate
			}
			return nil
		})
	})
	if err != nil && !errors.Is(err, errStopIterate) {
		return nil, synthgen.StorageError("lookup", err)
	}
	return out, nil
}

// Records returns every audit record in id order.
func (l *KV) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Record
	err := l.backend.ForEach(auditBucket, func(_, v []byte) error {
		var rec Record
		if err := storage.DecodeJSON(v, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, synthgen.StorageError("records", err)
	}
	return out, nil
}

func (l *KV) Close() error {
	return l.backend.Close()
}

// scopedPrefix scans head|processID| or, for all processes, head|.
func scopedPrefix(processID string, head ...string) []byte {
	if processID == AllProcesses {
		return storage.Prefix(head...)
	}
	return storage.Prefix(append(head, processID)...)
}
