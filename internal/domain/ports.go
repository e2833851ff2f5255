package domain

import "context"

// Store is an ordered key-value region of the persistent medium. Keys are
// 64-bit unsigned integers; values are versioned records. All operations
// block until the medium acknowledges the write, and a single Put or
// Delete is atomic from the caller's perspective.
type Store[V any] interface {
	// Get returns the value at key, reporting whether it exists.
	Get(ctx context.Context, key uint64) (V, bool, error)
	// Put inserts or overwrites the value at key and returns the prior
	// value, if any.
	Put(ctx context.Context, key uint64, value V) (*V, error)
	// Delete removes the value at key and returns it, if any.
	Delete(ctx context.Context, key uint64) (*V, error)
	// Ascend visits committed records in ascending key order until fn
	// returns false or an error. Re-invoking Ascend re-reads committed
	// state.
	Ascend(ctx context.Context, fn func(key uint64, value V) (bool, error)) error
}

// Sequence issues monotonically increasing unique identifiers, persisted
// so they survive restarts. A failing sequence is an unrecoverable
// storage fault: the ledger cannot make progress without a working id
// source.
type Sequence interface {
	Next(ctx context.Context) (uint64, error)
}

// Stores aggregates every region of the ledger. Each entity kind owns its
// own region and its own id namespace, so iteration over one kind never
// observes another kind's records.
type Stores struct {
	Accounts      Store[Account]
	Transactions  Store[Transaction]
	Stakes        Store[Stake]
	AuditEntries  Store[AuditEntry]
	Notifications Store[Notification]

	AccountIDs      Sequence
	TransactionIDs  Sequence
	StakeIDs        Sequence
	AuditIDs        Sequence
	NotificationIDs Sequence
}
