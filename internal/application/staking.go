package application

import (
	"context"
	"fmt"

	"github.com/clearledger/clearledger/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// interestRate is the flat 1% applied to every positive balance per
	// interest run.
	interestRate = decimal.New(1, -2)

	// rewardAnnualRate is the 5% yearly staking rate, prorated by the
	// stake's period measured in days.
	rewardAnnualRate = decimal.New(5, -2)

	daysPerYear   = decimal.New(365, 0)
	secondsPerDay = decimal.New(86400, 0)
	rewardDayRate = rewardAnnualRate.Div(daysPerYear)
)

// maxStakePeriodSeconds caps stake periods at ten years, keeping maturity
// and reward arithmetic well inside time.Duration range.
const maxStakePeriodSeconds = 10 * 365 * 86400

// stakeReward computes amount * (5% / 365) * (period in days), rounded
// half away from zero to the nearest minor unit as the final step.
func stakeReward(amount int64, periodSeconds uint64) int64 {
	periodDays := decimal.New(int64(periodSeconds), 0).Div(secondsPerDay)
	return domain.ApplyRate(amount, rewardDayRate.Mul(periodDays))
}

// CreateStake locks amount out of the account's spendable balance for
// periodSeconds. The debit and the stake record are written in one
// critical section.
func (s *LedgerService) CreateStake(ctx context.Context, accountID uint64, amount int64, periodSeconds uint64) (domain.Stake, error) {
	if amount <= 0 {
		return domain.Stake{}, fmt.Errorf("stake amount must be positive: %w", domain.ErrInvalidState)
	}
	if periodSeconds == 0 {
		return domain.Stake{}, fmt.Errorf("stake period must be positive: %w", domain.ErrInvalidState)
	}
	if periodSeconds > maxStakePeriodSeconds {
		return domain.Stake{}, fmt.Errorf("stake period exceeds %d seconds: %w", maxStakePeriodSeconds, domain.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.getAccountLocked(ctx, accountID)
	if err != nil {
		return domain.Stake{}, err
	}
	if account.Balance < amount {
		return domain.Stake{}, fmt.Errorf("account %d balance %d short of stake %d: %w",
			accountID, account.Balance, amount, domain.ErrInsufficientFunds)
	}

	account.Balance -= amount
	stake := domain.Stake{
		ID:            s.nextID(ctx, s.stores.StakeIDs, "stake"),
		AccountID:     accountID,
		Amount:        amount,
		Since:         s.now(),
		PeriodSeconds: periodSeconds,
		State:         domain.StakeActive,
	}
	if _, err := s.stores.Stakes.Put(ctx, stake.ID, stake); err != nil {
		return domain.Stake{}, err
	}
	if _, err := s.stores.Accounts.Put(ctx, account.ID, account); err != nil {
		return domain.Stake{}, err
	}

	s.audit(ctx, domain.ActionStakeCreation, accountID,
		fmt.Sprintf("staked %s for %d seconds", domain.FormatAmount(amount), periodSeconds))
	return stake, nil
}

func (s *LedgerService) ListStakes(ctx context.Context) ([]domain.Stake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stakes := make([]domain.Stake, 0)
	err := s.stores.Stakes.Ascend(ctx, func(_ uint64, stake domain.Stake) (bool, error) {
		stakes = append(stakes, stake)
		return true, nil
	})
	return stakes, err
}

// DistributeRewards settles every matured active stake: the prorated
// reward is credited as a system transaction and the stake transitions to
// settled, permanently. The principal stays locked in the settled stake
// record. Stakes already settled are skipped, so running the distribution
// twice never pays twice. Returns the ids of stakes settled in this run.
func (s *LedgerService) DistributeRewards(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	matured := make([]domain.Stake, 0)
	err := s.stores.Stakes.Ascend(ctx, func(_ uint64, stake domain.Stake) (bool, error) {
		if stake.State == domain.StakeActive && stake.Matured(now) {
			matured = append(matured, stake)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	settled := make([]uint64, 0, len(matured))
	for _, stake := range matured {
		// Deletion is blocked while a stake is active, so the account
		// is guaranteed to still exist here.
		account, err := s.getAccountLocked(ctx, stake.AccountID)
		if err != nil {
			return settled, err
		}

		// A reward that rounds to zero minor units settles the stake
		// without a transaction; the log never carries zero amounts.
		reward := stakeReward(stake.Amount, stake.PeriodSeconds)
		if reward > 0 {
			account.Balance += reward
			txn := domain.Transaction{
				ID:         s.nextID(ctx, s.stores.TransactionIDs, "transaction"),
				SenderID:   domain.SystemAccountID,
				ReceiverID: account.ID,
				Amount:     reward,
				Timestamp:  now,
			}
			if _, err := s.stores.Transactions.Put(ctx, txn.ID, txn); err != nil {
				return settled, err
			}
			if _, err := s.stores.Accounts.Put(ctx, account.ID, account); err != nil {
				return settled, err
			}
		}

		settledAt := now
		stake.State = domain.StakeSettled
		stake.SettledAt = &settledAt
		if _, err := s.stores.Stakes.Put(ctx, stake.ID, stake); err != nil {
			return settled, err
		}
		settled = append(settled, stake.ID)

		s.audit(ctx, domain.ActionRewardDistribution, account.ID,
			fmt.Sprintf("stake %d settled, reward %s", stake.ID, domain.FormatAmount(reward)))
	}
	return settled, nil
}

// ApplyInterestToAllAccounts credits 1% of each positive balance as a
// system transaction. Accounts whose computed interest rounds to zero are
// skipped; the log never carries zero-amount entries. Returns the number
// of accounts credited.
func (s *LedgerService) ApplyInterestToAllAccounts(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]domain.Account, 0)
	err := s.stores.Accounts.Ascend(ctx, func(_ uint64, account domain.Account) (bool, error) {
		accounts = append(accounts, account)
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	credited := 0
	for _, account := range accounts {
		if account.Balance <= 0 {
			continue
		}
		interest := domain.ApplyRate(account.Balance, interestRate)
		if interest == 0 {
			continue
		}

		account.Balance += interest
		txn := domain.Transaction{
			ID:         s.nextID(ctx, s.stores.TransactionIDs, "transaction"),
			SenderID:   domain.SystemAccountID,
			ReceiverID: account.ID,
			Amount:     interest,
			Timestamp:  s.now(),
		}
		if _, err := s.stores.Transactions.Put(ctx, txn.ID, txn); err != nil {
			return credited, err
		}
		if _, err := s.stores.Accounts.Put(ctx, account.ID, account); err != nil {
			return credited, err
		}
		credited++
	}

	s.audit(ctx, domain.ActionInterestApplication, domain.SystemAccountID,
		fmt.Sprintf("interest applied to %d account(s)", credited))
	return credited, nil
}
