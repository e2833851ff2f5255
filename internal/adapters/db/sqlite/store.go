package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clearledger/clearledger/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// Region names a table holding exactly one entity kind. Keeping every kind
// in its own table is what guarantees the storage-region isolation the
// ledger relies on.
type Region string

const (
	RegionAccounts      Region = "accounts"
	RegionTransactions  Region = "transactions"
	RegionStakes        Region = "stakes"
	RegionAuditEntries  Region = "audit_entries"
	RegionNotifications Region = "notifications"
)

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

// KV is an ordered u64-keyed store over a single region table. Values are
// JSON documents with a version that increments on every overwrite.
type KV[V any] struct {
	db     *gorm.DB
	region Region
}

func NewKV[V any](db *gorm.DB, region Region) *KV[V] {
	return &KV[V]{db: db, region: region}
}

type record struct {
	K       uint64
	Version int64
	Doc     string
}

func (s *KV[V]) Get(ctx context.Context, key uint64) (V, bool, error) {
	var zero V
	rows := make([]record, 0, 1)
	err := s.db.WithContext(ctx).
		Raw(fmt.Sprintf(`SELECT k, version, doc FROM %s WHERE k = ?`, s.region), key).
		Scan(&rows).Error
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}
	var value V
	if err := json.Unmarshal([]byte(rows[0].Doc), &value); err != nil {
		return zero, false, fmt.Errorf("decode %s record %d: %w", s.region, key, err)
	}
	return value, true, nil
}

func (s *KV[V]) Put(ctx context.Context, key uint64, value V) (*V, error) {
	prior, found, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s record %d: %w", s.region, key, err)
	}
	if found {
		err = s.db.WithContext(ctx).
			Exec(fmt.Sprintf(`UPDATE %s SET doc = ?, version = version + 1 WHERE k = ?`, s.region), string(doc), key).Error
		if err != nil {
			return nil, err
		}
		return &prior, nil
	}
	err = s.db.WithContext(ctx).
		Exec(fmt.Sprintf(`INSERT INTO %s (k, version, doc) VALUES (?, 1, ?)`, s.region), key, string(doc)).Error
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *KV[V]) Delete(ctx context.Context, key uint64) (*V, error) {
	prior, found, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	err = s.db.WithContext(ctx).
		Exec(fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, s.region), key).Error
	if err != nil {
		return nil, err
	}
	return &prior, nil
}

func (s *KV[V]) Ascend(ctx context.Context, fn func(key uint64, value V) (bool, error)) error {
	rows := make([]record, 0)
	err := s.db.WithContext(ctx).
		Raw(fmt.Sprintf(`SELECT k, version, doc FROM %s ORDER BY k ASC`, s.region)).
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		var value V
		if err := json.Unmarshal([]byte(row.Doc), &value); err != nil {
			return fmt.Errorf("decode %s record %d: %w", s.region, row.K, err)
		}
		cont, err := fn(row.K, value)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// Counter is a persisted sequence. Every entity kind gets its own row, so
// id namespaces never overlap across kinds.
type Counter struct {
	db   *gorm.DB
	name string
}

func NewCounter(db *gorm.DB, name string) *Counter {
	return &Counter{db: db, name: name}
}

func (c *Counter) Next(ctx context.Context) (uint64, error) {
	issued := make([]struct{ ID uint64 }, 0, 1)
	err := c.db.WithContext(ctx).
		Raw(`UPDATE sequences SET next = next + 1 WHERE name = ? RETURNING next - 1 AS id`, c.name).
		Scan(&issued).Error
	if err != nil {
		return 0, err
	}
	if len(issued) == 0 {
		return 0, fmt.Errorf("sequence %q not provisioned", c.name)
	}
	return issued[0].ID, nil
}

// NewStores wires every ledger region and sequence over one database.
func NewStores(db *gorm.DB) domain.Stores {
	return domain.Stores{
		Accounts:      NewKV[domain.Account](db, RegionAccounts),
		Transactions:  NewKV[domain.Transaction](db, RegionTransactions),
		Stakes:        NewKV[domain.Stake](db, RegionStakes),
		AuditEntries:  NewKV[domain.AuditEntry](db, RegionAuditEntries),
		Notifications: NewKV[domain.Notification](db, RegionNotifications),

		AccountIDs:      NewCounter(db, string(RegionAccounts)),
		TransactionIDs:  NewCounter(db, string(RegionTransactions)),
		StakeIDs:        NewCounter(db, string(RegionStakes)),
		AuditIDs:        NewCounter(db, string(RegionAuditEntries)),
		NotificationIDs: NewCounter(db, string(RegionNotifications)),
	}
}
