// Package postgres implements the ledger on PostgreSQL through gorm, for
// deployments where several service instances share one store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"pkg.jsn.cam/synthgen/internal/ledger"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

type entityModel struct {
	Kind    string `gorm:"column:kind;primaryKey"`
	Hash    string `gorm:"column:hash;primaryKey"`
	Payload []byte `gorm:"column:payload;type:bytea;not null"`
}

func (entityModel) TableName() string { return "synthgen_entities" }

type auditModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	ProcessID    string    `gorm:"column:process_id;not null;index:audit_hash_idx,priority:3;index:audit_partition_idx,priority:3"`
	Kind         string    `gorm:"column:kind;not null;index:audit_hash_idx,priority:1;index:audit_partition_idx,priority:1;index:audit_blur_idx,priority:1"`
	Hash         string    `gorm:"column:hash;not null;index:audit_hash_idx,priority:2;index:audit_partition_idx,priority:4"`
	PartitionKey string    `gorm:"column:partition_key;not null;index:audit_partition_idx,priority:2"`
	BlurID       string    `gorm:"column:blur_id;not null;index:audit_blur_idx,priority:2"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index:audit_blur_idx,priority:3"`
}

func (auditModel) TableName() string { return "synthgen_audit" }

func auditModelFromRecord(rec ledger.Record) auditModel {
	return auditModel{
		ID:           rec.ID,
		ProcessID:    rec.ProcessID,
		Kind:         string(rec.Kind),
		Hash:         rec.Hash,
		PartitionKey: rec.Partition,
		BlurID:       rec.BlurID,
		CreatedAt:    rec.CreatedAt.UTC(),
	}
}

// Ledger stores entities and audit rows in PostgreSQL.
type Ledger struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ ledger.Ledger = (*Ledger)(nil)

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Ledger, error) {
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, synthgen.StorageError("open postgres", err)
	}
	return New(ctx, db, logger)
}

// New wraps an existing connection and migrates the schema.
func New(ctx context.Context, db *gorm.DB, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.WithContext(ctx).AutoMigrate(&entityModel{}, &auditModel{}); err != nil {
		return nil, synthgen.StorageError("migrate postgres", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

type freshRow struct {
	InPartition int64
	InProcess   int64
}

func (l *Ledger) Issue(ctx context.Context, e *synthgen.Entity, rec ledger.Record) (ledger.Fresh, error) {
	if err := rec.Check(e); err != nil {
		return ledger.Fresh{}, err
	}

	var fresh ledger.Fresh
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior freshRow
		err := tx.Model(&auditModel{}).
			Select("COUNT(*) AS in_partition, COALESCE(SUM(CASE WHEN process_id = ? THEN 1 ELSE 0 END), 0) AS in_process", rec.ProcessID).
			Where("kind = ? AND hash = ? AND partition_key = ?", string(rec.Kind), rec.Hash, rec.Partition).
			Scan(&prior).
			Error
		if err != nil {
			return err
		}
		fresh = ledger.Fresh{Partition: prior.InPartition == 0, Process: prior.InProcess == 0}

		entity := entityModel{Kind: string(rec.Kind), Hash: rec.Hash, Payload: e.Raw()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entity).Error; err != nil {
			return err
		}
		row := auditModelFromRecord(rec)
		return tx.Create(&row).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.Fresh{}, ledger.ErrDuplicate
		}
		return ledger.Fresh{}, synthgen.StorageError("issue", l.logError("ledger.issue", err, "kind", rec.Kind, "id", rec.ID))
	}
	return fresh, nil
}

func (l *Ledger) scoped(ctx context.Context, kind synthgen.Kind, processID string) *gorm.DB {
	q := l.db.WithContext(ctx).Model(&auditModel{}).Where("kind = ?", string(kind))
	if processID != ledger.AllProcesses {
		q = q.Where("process_id = ?", processID)
	}
	return q
}

func (l *Ledger) Exists(ctx context.Context, kind synthgen.Kind, hash, processID string) (bool, error) {
	var row auditModel
	err := l.scoped(ctx, kind, processID).
		Where("hash = ?", hash).
		Select("id").
		Take(&row).
		Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case err != nil:
		return false, synthgen.StorageError("exists", l.logError("ledger.exists", err, "kind", kind))
	}
	return true, nil
}

func (l *Ledger) Count(ctx context.Context, kind synthgen.Kind, partition, processID string) (int64, error) {
	var n int64
	err := l.scoped(ctx, kind, processID).
		Where("partition_key = ?", partition).
		Distinct("hash").
		Count(&n).
		Error
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, synthgen.StorageError("count", l.logError("ledger.count", err, "kind", kind, "partition", partition))
	}
	return n, nil
}

type lookupRow struct {
	Hash    string
	Payload []byte
}

func (l *Ledger) Lookup(ctx context.Context, q ledger.LookupQuery) ([]*synthgen.Entity, error) {
	tx := l.db.WithContext(ctx).
		Table("synthgen_audit AS a").
		Select("a.hash AS hash, e.payload AS payload").
		Joins("JOIN synthgen_entities AS e ON e.kind = a.kind AND e.hash = a.hash").
		Where("a.kind = ? AND a.blur_id = ?", string(q.Kind), q.BlurID)
	if q.ProcessID != ledger.AllProcesses {
		tx = tx.Where("a.process_id = ?", q.ProcessID)
	}
	if q.Partition != "" {
		tx = tx.Where("a.partition_key = ?", q.Partition)
	}

	var rows []lookupRow
	if err := tx.Order("a.created_at, a.id").Scan(&rows).Error; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, synthgen.StorageError("lookup", l.logError("ledger.lookup", err, "kind", q.Kind, "blur_id", q.BlurID))
	}

	var out []*synthgen.Entity
	seen := make(map[string]bool)
	for _, row := range rows {
		if seen[row.Hash] {
			continue
		}
		e, err := synthgen.LoadEntity(row.Hash, row.Payload)
		if err != nil {
			return nil, fmt.Errorf("lookup: %w", err)
		}
		seen[row.Hash] = true
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Truncate removes every row. Only tests call it.
func (l *Ledger) Truncate(ctx context.Context) error {
	return l.db.WithContext(ctx).Exec("TRUNCATE synthgen_audit, synthgen_entities").Error
}

func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (l *Ledger) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	l.logger.Error("postgres ledger operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
