package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestBboltBackend(t *testing.T) {
	backendTestSuite(t, func() (Backend, func(), error) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		backend, err := NewBboltBackend(dbPath)
		if err != nil {
			return nil, nil, err
		}

		cleanup := func() {
			backend.Close()
			os.Remove(dbPath)
		}

		return backend, cleanup, nil
	})
}

func TestBboltBackendIsExclusive(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	first, err := NewBboltBackend(dbPath)
	if err != nil {
		t.Fatalf("NewBboltBackend failed: %v", err)
	}

	if _, err := NewBboltBackend(dbPath); !errors.Is(err, ErrLocked) {
		t.Fatalf("Second open returned %v, want ErrLocked", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	again, err := NewBboltBackend(dbPath)
	if err != nil {
		t.Fatalf("Reopen after close failed: %v", err)
	}
	again.Close()
}

func TestBboltStatsAndCompact(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	backend, err := NewBboltBackend(dbPath)
	if err != nil {
		t.Fatalf("NewBboltBackend failed: %v", err)
	}
	defer backend.Close()

	if err := EnsureBuckets(backend, []byte("a"), []byte("b")); err != nil {
		t.Fatalf("EnsureBuckets failed: %v", err)
	}
	for i := range 500 {
		backend.Put([]byte("a"), fmt.Appendf(nil, "key-%04d", i), make([]byte, 256))
	}
	for i := range 400 {
		backend.Delete([]byte("a"), fmt.Appendf(nil, "key-%04d", i))
	}
	backend.Put([]byte("b"), []byte("only"), []byte("1"))

	stats, err := backend.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Keys["a"] != 100 || stats.Keys["b"] != 1 {
		t.Errorf("Unexpected key counts %v", stats.Keys)
	}
	if stats.SizeBytes == 0 || stats.Path != dbPath {
		t.Errorf("Unexpected stats %+v", stats)
	}

	if err := backend.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	after, err := backend.Stats()
	if err != nil {
		t.Fatalf("Stats after compact failed: %v", err)
	}
	if after.SizeBytes > stats.SizeBytes {
		t.Errorf("Compaction grew the file from %d to %d bytes", stats.SizeBytes, after.SizeBytes)
	}

	got, err := backend.Get([]byte("a"), []byte("key-0450"))
	if err != nil || len(got) != 256 {
		t.Errorf("Data lost in compaction: %d bytes, %v", len(got), err)
	}
	if _, err := os.Stat(dbPath + ".compact"); !os.IsNotExist(err) {
		t.Errorf("Temporary compaction file left behind: %v", err)
	}
}
