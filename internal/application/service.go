package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clearledger/clearledger/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	suspicionWindow         = 24 * time.Hour
	suspicionMaxTxsInWindow = 10
)

// suspicionAmountThreshold is 10,000 whole units.
var suspicionAmountThreshold = domain.UnitsToMinor(10000)

// LedgerService owns the whole ledger state and serializes every
// operation behind one process-wide mutex. Critical sections are short
// and run to completion; the persistent store completes synchronously, so
// nothing blocks on external I/O mid-mutation.
type LedgerService struct {
	mu     sync.Mutex
	stores domain.Stores
	now    func() time.Time
	log    *logrus.Logger
}

func NewLedgerService(stores domain.Stores) *LedgerService {
	return &LedgerService{
		stores: stores,
		now:    time.Now,
		log:    logrus.StandardLogger(),
	}
}

// nextID allocates an id or stops the process. An id source that cannot
// persist its counter is an unrecoverable storage fault: continuing would
// risk reissuing identifiers.
func (s *LedgerService) nextID(ctx context.Context, seq domain.Sequence, kind string) uint64 {
	id, err := seq.Next(ctx)
	if err != nil {
		s.log.WithError(err).Fatalf("ledger halted: %s id allocation failed", kind)
	}
	return id
}

// audit appends an audit entry as a best-effort side channel. Callers
// already hold the ledger lock; a failed write never rolls back the
// financial mutation it describes.
func (s *LedgerService) audit(ctx context.Context, action domain.ActionType, accountID uint64, details string) {
	entry := domain.AuditEntry{
		ID:        s.nextID(ctx, s.stores.AuditIDs, "audit"),
		Action:    action,
		AccountID: accountID,
		Timestamp: s.now(),
		Details:   details,
	}
	if _, err := s.stores.AuditEntries.Put(ctx, entry.ID, entry); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("audit entry dropped")
	}
}

func (s *LedgerService) CreateAccount(ctx context.Context, holderName string, initialBalance int64) (domain.Account, error) {
	if initialBalance < 0 {
		return domain.Account{}, fmt.Errorf("initial balance must not be negative: %w", domain.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account := domain.Account{
		ID:         s.nextID(ctx, s.stores.AccountIDs, "account"),
		HolderName: holderName,
		Balance:    initialBalance,
		CreatedAt:  s.now(),
	}
	if _, err := s.stores.Accounts.Put(ctx, account.ID, account); err != nil {
		return domain.Account{}, err
	}
	s.audit(ctx, domain.ActionAccountCreation, account.ID, fmt.Sprintf("account created for %q", holderName))
	return account, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id uint64) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccountLocked(ctx, id)
}

func (s *LedgerService) getAccountLocked(ctx context.Context, id uint64) (domain.Account, error) {
	account, ok, err := s.stores.Accounts.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, fmt.Errorf("account %d: %w", id, domain.ErrNotFound)
	}
	return account, nil
}

func (s *LedgerService) GetAccountBalance(ctx context.Context, id uint64) (int64, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]domain.Account, 0)
	err := s.stores.Accounts.Ascend(ctx, func(_ uint64, account domain.Account) (bool, error) {
		accounts = append(accounts, account)
		return true, nil
	})
	return accounts, err
}

func (s *LedgerService) UpdateAccountHolderName(ctx context.Context, id uint64, holderName string) (domain.Account, error) {
	if holderName == "" {
		return domain.Account{}, fmt.Errorf("holder name must not be empty: %w", domain.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.getAccountLocked(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	account.HolderName = holderName
	if _, err := s.stores.Accounts.Put(ctx, account.ID, account); err != nil {
		return domain.Account{}, err
	}
	s.audit(ctx, domain.ActionAccountUpdate, account.ID, fmt.Sprintf("holder name changed to %q", holderName))
	return account, nil
}

// DeleteAccount removes an account. Deletion is refused while the account
// still has active stakes; settled stakes and past transactions do not
// block it.
func (s *LedgerService) DeleteAccount(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getAccountLocked(ctx, id); err != nil {
		return err
	}

	var active uint64
	err := s.stores.Stakes.Ascend(ctx, func(_ uint64, stake domain.Stake) (bool, error) {
		if stake.AccountID == id && stake.State == domain.StakeActive {
			active++
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("account %d has %d active stake(s): %w", id, active, domain.ErrInvalidState)
	}

	if _, err := s.stores.Accounts.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, domain.ActionAccountDeletion, id, "account deleted")
	return nil
}

// TransferFunds moves amount from sender to receiver and records exactly
// one transaction, all inside a single critical section so no concurrent
// transfer can interleave reads and writes of either balance.
func (s *LedgerService) TransferFunds(ctx context.Context, senderID, receiverID uint64, amount int64) (domain.Transaction, error) {
	if amount <= 0 {
		return domain.Transaction{}, fmt.Errorf("transfer amount must be positive: %w", domain.ErrInvalidState)
	}
	if senderID == receiverID {
		return domain.Transaction{}, fmt.Errorf("sender and receiver are the same account: %w", domain.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.getAccountLocked(ctx, senderID)
	if err != nil {
		return domain.Transaction{}, err
	}
	receiver, err := s.getAccountLocked(ctx, receiverID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if sender.Balance < amount {
		return domain.Transaction{}, fmt.Errorf("account %d balance %d short of %d: %w",
			senderID, sender.Balance, amount, domain.ErrInsufficientFunds)
	}

	sender.Balance -= amount
	receiver.Balance += amount

	txn := domain.Transaction{
		ID:         s.nextID(ctx, s.stores.TransactionIDs, "transaction"),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Timestamp:  s.now(),
	}
	if _, err := s.stores.Transactions.Put(ctx, txn.ID, txn); err != nil {
		return domain.Transaction{}, err
	}
	if _, err := s.stores.Accounts.Put(ctx, sender.ID, sender); err != nil {
		return domain.Transaction{}, err
	}
	if _, err := s.stores.Accounts.Put(ctx, receiver.ID, receiver); err != nil {
		return domain.Transaction{}, err
	}

	s.audit(ctx, domain.ActionTransactionExecution, senderID,
		fmt.Sprintf("transferred %s to account %d", domain.FormatAmount(amount), receiverID))
	return txn, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id uint64) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTransactionLocked(ctx, id)
}

func (s *LedgerService) getTransactionLocked(ctx context.Context, id uint64) (domain.Transaction, error) {
	txn, ok, err := s.stores.Transactions.Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if !ok {
		return domain.Transaction{}, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}
	return txn, nil
}

// GetAllTransactions returns the transaction log in id order. An empty
// ledger yields an empty slice, not an error.
func (s *LedgerService) GetAllTransactions(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txns := make([]domain.Transaction, 0)
	err := s.stores.Transactions.Ascend(ctx, func(_ uint64, txn domain.Transaction) (bool, error) {
		txns = append(txns, txn)
		return true, nil
	})
	return txns, err
}

// ReverseTransaction records a second, opposite transfer undoing the
// named one. The original entry stays in the log untouched.
func (s *LedgerService) ReverseTransaction(ctx context.Context, transactionID uint64) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, err := s.getTransactionLocked(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if original.Amount <= 0 {
		return domain.Transaction{}, fmt.Errorf("transaction %d amount is not positive: %w",
			transactionID, domain.ErrInvalidState)
	}

	// The original receiver pays the amount back.
	payer, err := s.getAccountLocked(ctx, original.ReceiverID)
	if err != nil {
		return domain.Transaction{}, err
	}
	payee, err := s.getAccountLocked(ctx, original.SenderID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if payer.Balance < original.Amount {
		return domain.Transaction{}, fmt.Errorf("account %d balance %d short of reversal amount %d: %w",
			payer.ID, payer.Balance, original.Amount, domain.ErrInsufficientFunds)
	}

	payer.Balance -= original.Amount
	payee.Balance += original.Amount

	reversal := domain.Transaction{
		ID:         s.nextID(ctx, s.stores.TransactionIDs, "transaction"),
		SenderID:   original.ReceiverID,
		ReceiverID: original.SenderID,
		Amount:     original.Amount,
		Timestamp:  s.now(),
	}
	if _, err := s.stores.Transactions.Put(ctx, reversal.ID, reversal); err != nil {
		return domain.Transaction{}, err
	}
	if _, err := s.stores.Accounts.Put(ctx, payer.ID, payer); err != nil {
		return domain.Transaction{}, err
	}
	if _, err := s.stores.Accounts.Put(ctx, payee.ID, payee); err != nil {
		return domain.Transaction{}, err
	}

	s.audit(ctx, domain.ActionTransactionReversal, payer.ID,
		fmt.Sprintf("reversed transaction %d (%s back to account %d)",
			transactionID, domain.FormatAmount(original.Amount), payee.ID))
	return reversal, nil
}

// CheckForSuspiciousActivity scans the trailing 24h window of the log for
// transactions involving the account. Past 10 transactions in the window
// every one of them is reported; below that only individually large ones
// (over 10,000 units) are. Read-only heuristic, never blocks a transfer.
func (s *LedgerService) CheckForSuspiciousActivity(ctx context.Context, accountID uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-suspicionWindow)
	related := make([]domain.Transaction, 0)
	err := s.stores.Transactions.Ascend(ctx, func(_ uint64, txn domain.Transaction) (bool, error) {
		if txn.SenderID != accountID && txn.ReceiverID != accountID {
			return true, nil
		}
		if txn.Timestamp.Before(cutoff) {
			return true, nil
		}
		related = append(related, txn)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	flagged := make([]uint64, 0)
	if len(related) > suspicionMaxTxsInWindow {
		for _, txn := range related {
			flagged = append(flagged, txn.ID)
		}
		return flagged, nil
	}
	for _, txn := range related {
		if txn.Amount > suspicionAmountThreshold {
			flagged = append(flagged, txn.ID)
		}
	}
	return flagged, nil
}

// LogAuditEntry records an administrative action on the audit trail.
func (s *LedgerService) LogAuditEntry(ctx context.Context, action domain.ActionType, accountID uint64, details string) (domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := domain.AuditEntry{
		ID:        s.nextID(ctx, s.stores.AuditIDs, "audit"),
		Action:    action,
		AccountID: accountID,
		Timestamp: s.now(),
		Details:   details,
	}
	if _, err := s.stores.AuditEntries.Put(ctx, entry.ID, entry); err != nil {
		return domain.AuditEntry{}, err
	}
	return entry, nil
}

func (s *LedgerService) ListAuditEntries(ctx context.Context) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.AuditEntry, 0)
	err := s.stores.AuditEntries.Ascend(ctx, func(_ uint64, entry domain.AuditEntry) (bool, error) {
		entries = append(entries, entry)
		return true, nil
	})
	return entries, err
}

// CreateNotification appends a user-facing message to the notification log.
func (s *LedgerService) CreateNotification(ctx context.Context, accountID uint64, message string) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := domain.Notification{
		ID:        s.nextID(ctx, s.stores.NotificationIDs, "notification"),
		AccountID: accountID,
		Message:   message,
		Timestamp: s.now(),
	}
	if _, err := s.stores.Notifications.Put(ctx, note.ID, note); err != nil {
		return domain.Notification{}, err
	}
	return note, nil
}

func (s *LedgerService) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := make([]domain.Notification, 0)
	err := s.stores.Notifications.Ascend(ctx, func(_ uint64, note domain.Notification) (bool, error) {
		notes = append(notes, note)
		return true, nil
	})
	return notes, err
}
