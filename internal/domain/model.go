package domain

import "time"

// SystemAccountID is the reserved sender id for system-originated credits
// such as interest and staking rewards. No real account ever gets this id;
// sequences start at 1.
const SystemAccountID uint64 = 0

type Account struct {
	ID         uint64    `json:"id"`
	HolderName string    `json:"holder_name"`
	Balance    int64     `json:"balance"` // minor units
	CreatedAt  time.Time `json:"created_at"`
}

type Transaction struct {
	ID         uint64    `json:"id"`
	SenderID   uint64    `json:"sender_id"` // SystemAccountID for interest/reward credits
	ReceiverID uint64    `json:"receiver_id"`
	Amount     int64     `json:"amount"` // minor units, always > 0
	Timestamp  time.Time `json:"timestamp"`
}

type StakeState string

const (
	StakeActive  StakeState = "active"
	StakeSettled StakeState = "settled"
)

// Stake locks funds out of an account's spendable balance for a fixed
// period. The state machine has a single irreversible transition,
// active -> settled, taken once when rewards are distributed at or after
// maturity.
type Stake struct {
	ID            uint64     `json:"id"`
	AccountID     uint64     `json:"account_id"`
	Amount        int64      `json:"amount"` // minor units
	Since         time.Time  `json:"since"`
	PeriodSeconds uint64     `json:"period_seconds"`
	State         StakeState `json:"state"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}

func (s Stake) MaturesAt() time.Time {
	return s.Since.Add(time.Duration(s.PeriodSeconds) * time.Second)
}

func (s Stake) Matured(now time.Time) bool {
	return !now.Before(s.MaturesAt())
}

type ActionType string

const (
	ActionNone                 ActionType = "none"
	ActionAccountCreation      ActionType = "account_creation"
	ActionAccountUpdate        ActionType = "account_update"
	ActionAccountDeletion      ActionType = "account_deletion"
	ActionTransactionExecution ActionType = "transaction_execution"
	ActionTransactionReversal  ActionType = "transaction_reversal"
	ActionStakeCreation        ActionType = "stake_creation"
	ActionInterestApplication  ActionType = "interest_application"
	ActionRewardDistribution   ActionType = "reward_distribution"
)

type AuditEntry struct {
	ID        uint64     `json:"id"`
	Action    ActionType `json:"action"`
	AccountID uint64     `json:"account_id"`
	Timestamp time.Time  `json:"timestamp"`
	Details   string     `json:"details"`
}

type Notification struct {
	ID        uint64    `json:"id"`
	AccountID uint64    `json:"account_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
