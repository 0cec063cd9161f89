package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, err := s.Load(ctx, KeyTransactions); err != nil || ok {
		t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
	}

	if err := s.Save(ctx, KeyTransactions, []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	blob, ok, err := s.Load(ctx, KeyTransactions)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(blob) != `[]` {
		t.Fatalf("unexpected blob %s", blob)
	}

	if err := s.Delete(ctx, KeyTransactions); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Load(ctx, KeyTransactions); ok {
		t.Fatal("expected absent after delete")
	}
}

func TestMemoryStoreCopiesBlobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := []byte(`{"a":1}`)
	if err := s.Save(ctx, "k", in); err != nil {
		t.Fatalf("save: %v", err)
	}
	in[1] = 'x'

	out, _, _ := s.Load(ctx, "k")
	if string(out) != `{"a":1}` {
		t.Fatalf("stored blob aliased caller buffer: %s", out)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	if _, ok, err := s.Load(ctx, KeyGoals); err != nil || ok {
		t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
	}

	if err := s.Save(ctx, KeyGoals, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	blob, ok, err := s.Load(ctx, KeyGoals)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(blob) != `[{"id":"1"}]` {
		t.Fatalf("unexpected blob %s", blob)
	}

	if err := s.Delete(ctx, KeyGoals); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, KeyGoals); err != nil {
		t.Fatalf("delete of absent key should be a no-op: %v", err)
	}
}

func TestSQLiteStoreRoundTripAfterMigrations(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	// Running again must be a no-op, not a second schema application.
	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("second migration run: %v", err)
	}

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer s.Close()

	if err := s.Save(ctx, KeyBudgets, []byte(`{}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	blob, ok, err := s.Load(ctx, KeyBudgets)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(blob) != `{}` {
		t.Fatalf("unexpected blob %s", blob)
	}
	if err := s.Delete(ctx, KeyBudgets); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Load(ctx, KeyBudgets); ok {
		t.Fatal("expected absent after delete")
	}
}

func TestSQLiteStoreWithoutMigrationsHasNoSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer s.Close()

	// Opening the store must not apply the schema behind the caller's back.
	if err := s.Save(context.Background(), KeyBudgets, []byte(`{}`)); err == nil {
		t.Fatal("save succeeded without migrations, want missing-table error")
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.Save(context.Background(), "../escape", []byte(`1`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := filepath.Glob(filepath.Join(dir, "*.json")); err != nil {
		t.Fatalf("glob: %v", err)
	}
	if _, ok, _ := s.Load(context.Background(), "../escape"); !ok {
		t.Fatal("sanitized key should round-trip")
	}
}
