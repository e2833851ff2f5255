package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/clearledger/clearledger/internal/domain"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func TestKVPutGetDelete(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "store.db"))
	ctx := context.Background()
	kv := NewKV[domain.Account](db, RegionAccounts)

	if _, ok, err := kv.Get(ctx, 1); err != nil || ok {
		t.Fatalf("get on empty store: ok=%v err=%v", ok, err)
	}

	first := domain.Account{ID: 1, HolderName: "Alice", Balance: 100}
	prior, err := kv.Put(ctx, 1, first)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if prior != nil {
		t.Fatalf("insert returned prior %+v", prior)
	}

	got, ok, err := kv.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.HolderName != "Alice" || got.Balance != 100 {
		t.Fatalf("got %+v", got)
	}

	// Overwrite returns the replaced value.
	second := first
	second.Balance = 250
	prior, err = kv.Put(ctx, 1, second)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if prior == nil || prior.Balance != 100 {
		t.Fatalf("overwrite prior %+v", prior)
	}

	removed, err := kv.Delete(ctx, 1)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed == nil || removed.Balance != 250 {
		t.Fatalf("delete returned %+v", removed)
	}
	if _, ok, _ := kv.Get(ctx, 1); ok {
		t.Fatalf("record survived delete")
	}

	// Deleting a missing key is a no-op.
	removed, err = kv.Delete(ctx, 1)
	if err != nil || removed != nil {
		t.Fatalf("second delete: removed=%+v err=%v", removed, err)
	}
}

func TestKVAscendOrderAndEarlyStop(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "store.db"))
	ctx := context.Background()
	kv := NewKV[domain.Transaction](db, RegionTransactions)

	// Insert out of key order.
	for _, key := range []uint64{5, 1, 3} {
		txn := domain.Transaction{ID: key, Amount: int64(key) * 10, Timestamp: time.Now().UTC()}
		if _, err := kv.Put(ctx, key, txn); err != nil {
			t.Fatalf("put %d: %v", key, err)
		}
	}

	visited := make([]uint64, 0, 3)
	err := kv.Ascend(ctx, func(key uint64, _ domain.Transaction) (bool, error) {
		visited = append(visited, key)
		return true, nil
	})
	if err != nil {
		t.Fatalf("ascend: %v", err)
	}
	want := []uint64{1, 3, 5}
	if len(visited) != len(want) {
		t.Fatalf("visited %v", visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}

	// Returning false stops the scan.
	visited = visited[:0]
	err = kv.Ascend(ctx, func(key uint64, _ domain.Transaction) (bool, error) {
		visited = append(visited, key)
		return false, nil
	})
	if err != nil {
		t.Fatalf("ascend with stop: %v", err)
	}
	if len(visited) != 1 || visited[0] != 1 {
		t.Fatalf("early stop visited %v", visited)
	}
}

func TestRegionsAreIsolated(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "store.db"))
	ctx := context.Background()

	audits := NewKV[domain.AuditEntry](db, RegionAuditEntries)
	notes := NewKV[domain.Notification](db, RegionNotifications)

	// Same key in both regions must not collide.
	entry := domain.AuditEntry{ID: 1, Action: domain.ActionAccountCreation, Details: "created"}
	if _, err := audits.Put(ctx, 1, entry); err != nil {
		t.Fatalf("put audit: %v", err)
	}
	note := domain.Notification{ID: 1, AccountID: 7, Message: "hello"}
	if _, err := notes.Put(ctx, 1, note); err != nil {
		t.Fatalf("put notification: %v", err)
	}

	gotEntry, ok, err := audits.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get audit: ok=%v err=%v", ok, err)
	}
	if gotEntry.Details != "created" {
		t.Fatalf("got audit %+v", gotEntry)
	}

	gotNote, ok, err := notes.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get notification: ok=%v err=%v", ok, err)
	}
	if gotNote.Message != "hello" {
		t.Fatalf("got notification %+v", gotNote)
	}

	count := 0
	if err := audits.Ascend(ctx, func(uint64, domain.AuditEntry) (bool, error) {
		count++
		return true, nil
	}); err != nil {
		t.Fatalf("ascend audits: %v", err)
	}
	if count != 1 {
		t.Fatalf("audit region holds %d records, want 1", count)
	}
}

func TestCountersAreIndependentAndPersistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	db := openTestDB(t, path)
	ctx := context.Background()

	accounts := NewCounter(db, string(RegionAccounts))
	stakes := NewCounter(db, string(RegionStakes))

	for want := uint64(1); want <= 3; want++ {
		id, err := accounts.Next(ctx)
		if err != nil {
			t.Fatalf("accounts next: %v", err)
		}
		if id != want {
			t.Fatalf("accounts issued %d, want %d", id, want)
		}
	}

	// Another kind's counter is unaffected.
	id, err := stakes.Next(ctx)
	if err != nil {
		t.Fatalf("stakes next: %v", err)
	}
	if id != 1 {
		t.Fatalf("stakes issued %d, want 1", id)
	}

	// Reopening the database resumes where the counter left off.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	id, err = NewCounter(reopened, string(RegionAccounts)).Next(ctx)
	if err != nil {
		t.Fatalf("next after reopen: %v", err)
	}
	if id != 4 {
		t.Fatalf("issued %d after reopen, want 4", id)
	}
}

func TestCounterUnknownName(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "store.db"))

	if _, err := NewCounter(db, "bogus").Next(context.Background()); err == nil {
		t.Fatalf("expected error for unprovisioned sequence")
	}
}
