// Package ledgertest holds the behaviour every ledger.Ledger implementation
// must share.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.jsn.cam/synthgen/internal/ledger"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// Factory returns a fresh, empty ledger. Cleanup is registered on t.
type Factory func(t *testing.T) ledger.Ledger

var epoch = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func entity(t *testing.T, payload map[string]any) *synthgen.Entity {
	t.Helper()
	e, err := synthgen.NewEntity(payload)
	require.NoError(t, err)
	return e
}

func issue(t *testing.T, l ledger.Ledger, e *synthgen.Entity, kind synthgen.Kind, partition, blurID, processID string, at time.Time) ledger.Fresh {
	t.Helper()
	rec := ledger.NewRecord(e, kind, partition, blurID, processID, at)
	fresh, err := l.Issue(context.Background(), e, rec)
	require.NoError(t, err)
	return fresh
}

// Run executes the contract suite against ledgers built by newLedger.
func Run(t *testing.T, newLedger Factory) {
	ctx := context.Background()

	t.Run("ExistsHonoursProcessFilter", func(t *testing.T) {
		l := newLedger(t)
		e := entity(t, map[string]any{"mail": "yann.le-cleach@example.org"})
		issue(t, l, e, synthgen.KindMail, "NONE", "b1", "p1", epoch)

		found, err := l.Exists(ctx, synthgen.KindMail, e.Hash, "p1")
		require.NoError(t, err)
		assert.True(t, found, "same process")

		found, err = l.Exists(ctx, synthgen.KindMail, e.Hash, ledger.AllProcesses)
		require.NoError(t, err)
		assert.True(t, found, "all processes")

		found, err = l.Exists(ctx, synthgen.KindMail, e.Hash, "p2")
		require.NoError(t, err)
		assert.False(t, found, "other process")

		found, err = l.Exists(ctx, synthgen.KindUID, e.Hash, ledger.AllProcesses)
		require.NoError(t, err)
		assert.False(t, found, "other kind")
	})

	t.Run("CountByPartitionAndProcess", func(t *testing.T) {
		l := newLedger(t)
		for i := range 3 {
			issue(t, l, entity(t, map[string]any{"value": i}), synthgen.KindInteger, "[0-9]", "b1", "p1", epoch)
		}
		issue(t, l, entity(t, map[string]any{"value": 7}), synthgen.KindInteger, "[0-9]", "b2", "p2", epoch)
		issue(t, l, entity(t, map[string]any{"value": 50}), synthgen.KindInteger, "[0-99]", "b1", "p1", epoch)

		n, err := l.Count(ctx, synthgen.KindInteger, "[0-9]", ledger.AllProcesses)
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)

		n, err = l.Count(ctx, synthgen.KindInteger, "[0-9]", "p1")
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		n, err = l.Count(ctx, synthgen.KindInteger, "[0-99]", "p2")
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		n, err = l.Count(ctx, synthgen.KindDate, "[0-9]", ledger.AllProcesses)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("CountIgnoresRepeatedHashes", func(t *testing.T) {
		l := newLedger(t)
		one := entity(t, map[string]any{"value": 1})
		two := entity(t, map[string]any{"value": 2})
		issue(t, l, one, synthgen.KindInteger, "[1-3]", "b1", "pa", epoch)
		issue(t, l, two, synthgen.KindInteger, "[1-3]", "b1", "pa", epoch)
		issue(t, l, one, synthgen.KindInteger, "[1-3]", "b2", "pb", epoch)
		issue(t, l, two, synthgen.KindInteger, "[1-3]", "b2", "pb", epoch)
		issue(t, l, two, synthgen.KindInteger, "[1-3]", "b3", "pb", epoch)

		n, err := l.Count(ctx, synthgen.KindInteger, "[1-3]", ledger.AllProcesses)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = l.Count(ctx, synthgen.KindInteger, "[1-3]", "pb")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("IssueReportsFreshness", func(t *testing.T) {
		l := newLedger(t)
		e := entity(t, map[string]any{"value": 3})

		fresh := issue(t, l, e, synthgen.KindInteger, "[1-4]", "b", "pa", epoch)
		assert.Equal(t, ledger.Fresh{Partition: true, Process: true}, fresh, "first issuance")

		fresh = issue(t, l, e, synthgen.KindInteger, "[1-4]", "b", "pa", epoch)
		assert.Equal(t, ledger.Fresh{}, fresh, "same process again")

		fresh = issue(t, l, e, synthgen.KindInteger, "[1-4]", "b", "pb", epoch)
		assert.Equal(t, ledger.Fresh{Process: true}, fresh, "other process")

		fresh = issue(t, l, e, synthgen.KindInteger, "[1-9]", "b", "pa", epoch)
		assert.Equal(t, ledger.Fresh{Partition: true, Process: true}, fresh, "other partition")
	})

	t.Run("LookupReturnsIssuanceOrder", func(t *testing.T) {
		l := newLedger(t)
		var want []*synthgen.Entity
		for i := range 5 {
			e := entity(t, map[string]any{"uai": fmt.Sprintf("0290000%c", 'A'+i)})
			issue(t, l, e, synthgen.KindUAI, "029", "blur", "p1", epoch.Add(time.Duration(i)*time.Second))
			want = append(want, e)
		}
		issue(t, l, entity(t, map[string]any{"uai": "0350000A"}), synthgen.KindUAI, "035", "blur", "p1", epoch.Add(time.Minute))
		issue(t, l, entity(t, map[string]any{"uai": "0290000Z"}), synthgen.KindUAI, "029", "other", "p1", epoch.Add(time.Minute))

		got, err := l.Lookup(ctx, ledger.LookupQuery{Kind: synthgen.KindUAI, BlurID: "blur", Partition: "029"})
		require.NoError(t, err)
		assert.Equal(t, want, got)

		got, err = l.Lookup(ctx, ledger.LookupQuery{Kind: synthgen.KindUAI, BlurID: "blur", Partition: "029", Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, want[:2], got)

		got, err = l.Lookup(ctx, ledger.LookupQuery{Kind: synthgen.KindUAI, BlurID: "blur"})
		require.NoError(t, err)
		assert.Len(t, got, 6)
	})

	t.Run("LookupOrdersByCreationBeforeID", func(t *testing.T) {
		l := newLedger(t)
		early := entity(t, map[string]any{"uuid": "early"})
		late := entity(t, map[string]any{"uuid": "late"})
		earlyRec := ledger.NewRecord(early, synthgen.KindUUID, "NONE", "b", "p1", epoch)
		lateRec := ledger.NewRecord(late, synthgen.KindUUID, "NONE", "b", "p2", epoch.Add(time.Millisecond))
		// Another instance may mint a smaller id for a later row.
		earlyRec.ID, lateRec.ID = "z-"+earlyRec.ID, "a-"+lateRec.ID

		_, err := l.Issue(ctx, late, lateRec)
		require.NoError(t, err)
		_, err = l.Issue(ctx, early, earlyRec)
		require.NoError(t, err)

		got, err := l.Lookup(ctx, ledger.LookupQuery{Kind: synthgen.KindUUID, BlurID: "b", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []*synthgen.Entity{early}, got)
	})

	t.Run("LookupFiltersProcessAndDedupes", func(t *testing.T) {
		l := newLedger(t)
		shared := entity(t, map[string]any{"uuid": "shared"})
		issue(t, l, shared, synthgen.KindUUID, "NONE", "b", "p1", epoch)
		issue(t, l, shared, synthgen.KindUUID, "NONE", "b", "p1", epoch.Add(time.Second))
		mine := entity(t, map[string]any{"uuid": "p2-only"})
		issue(t, l, mine, synthgen.KindUUID, "NONE", "b", "p2", epoch.Add(2*time.Second))

		got, err := l.Lookup(ctx, ledger.LookupQuery{Kind: synthgen.KindUUID, BlurID: "b"})
		require.NoError(t, err)
		assert.Equal(t, []*synthgen.Entity{shared, mine}, got)

		got, err = l.Lookup(ctx, ledger.LookupQuery{Kind: synthgen.KindUUID, BlurID: "b", ProcessID: "p2"})
		require.NoError(t, err)
		assert.Equal(t, []*synthgen.Entity{mine}, got)

		got, err = l.Lookup(ctx, ledger.LookupQuery{Kind: synthgen.KindUUID, BlurID: "missing"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("FirstPayloadWinsForAHash", func(t *testing.T) {
		l := newLedger(t)
		first := entity(t, map[string]any{"firstName": "Anne", "city": "Brest"})
		second := entity(t, map[string]any{"firstName": "Anne", "city": "Vannes"}).WithHash(first.Hash)

		issue(t, l, first, synthgen.KindUser, "F", "b", "p1", epoch)
		issue(t, l, second, synthgen.KindUser, "F", "b", "p1", epoch.Add(time.Second))

		got, err := l.Lookup(ctx, ledger.LookupQuery{Kind: synthgen.KindUser, BlurID: "b"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Brest", got[0].String("city"))

		n, err := l.Count(ctx, synthgen.KindUser, "F", ledger.AllProcesses)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, "one hash, however often issued")
	})

	t.Run("IssueRejectsMismatchedRecord", func(t *testing.T) {
		l := newLedger(t)
		e := entity(t, map[string]any{"value": 1})
		rec := ledger.NewRecord(e, synthgen.KindInteger, "[1-1]", "b", "p", epoch)
		rec.Hash = "not-the-hash"

		_, err := l.Issue(ctx, e, rec)
		require.Error(t, err)

		found, err := l.Exists(ctx, synthgen.KindInteger, e.Hash, ledger.AllProcesses)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("DuplicateRecordID", func(t *testing.T) {
		l := newLedger(t)
		e := entity(t, map[string]any{"value": 1})
		rec := ledger.NewRecord(e, synthgen.KindInteger, "[1-1]", "b", "p", epoch)
		_, err := l.Issue(ctx, e, rec)
		require.NoError(t, err)

		_, err = l.Issue(ctx, e, rec)
		assert.True(t, errors.Is(err, ledger.ErrDuplicate), "got %v", err)

		n, err := l.Count(ctx, synthgen.KindInteger, "[1-1]", ledger.AllProcesses)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, "rejected issue must not leave index rows")
	})

	t.Run("CancelledContext", func(t *testing.T) {
		l := newLedger(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := l.Exists(cctx, synthgen.KindMail, "h", ledger.AllProcesses)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
