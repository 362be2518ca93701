package models

import (
	"time"

	"github.com/Govind-619/WalletDesk/money"
	"gorm.io/datatypes"
)

// Wallet holds a user's balance. It is only ever changed by the wallet store, which
// appends a LedgerEntry in the same transaction.
type Wallet struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	UserID         uint        `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance        money.Money `gorm:"not null;default:0;check:chk_wallets_balance,balance >= 0" json:"balance"`
	TotalDeposited money.Money `gorm:"not null;default:0" json:"total_deposited"`
	TotalSpent     money.Money `gorm:"not null;default:0" json:"total_spent"`
	Version        uint        `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Reconciled reports whether balance equals deposits minus spend.
func (w Wallet) Reconciled() bool {
	return w.Balance >= 0 && w.Balance == w.TotalDeposited-w.TotalSpent
}

// LedgerKind classifies a balance mutation.
type LedgerKind string

const (
	LedgerKindTopup                 LedgerKind = "TOPUP"
	LedgerKindUsageDebit            LedgerKind = "USAGE_DEBIT"
	LedgerKindAdminAdjustmentAdd    LedgerKind = "ADMIN_ADJUSTMENT_ADD"
	LedgerKindAdminAdjustmentDeduct LedgerKind = "ADMIN_ADJUSTMENT_DEDUCT"
)

// IsCredit reports whether entries of this kind add to the balance.
func (k LedgerKind) IsCredit() bool {
	return k == LedgerKindTopup || k == LedgerKindAdminAdjustmentAdd
}

// LedgerEntry is an immutable record of one balance mutation. Amount is signed:
// credits are positive, debits negative. Corrections are new offsetting entries.
type LedgerEntry struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	WalletID    uint        `gorm:"index;not null" json:"wallet_id"`
	Amount      money.Money `gorm:"not null" json:"amount"`
	Kind        LedgerKind  `gorm:"type:varchar(32);index;not null" json:"kind"`
	ReferenceID string      `gorm:"index;size:64" json:"reference_id"`
	// TopupRequestID is only set for TOPUP entries; the unique index makes a second
	// credit for the same request impossible.
	TopupRequestID *uint          `gorm:"uniqueIndex" json:"topup_request_id,omitempty"`
	BalanceAfter   money.Money    `gorm:"not null" json:"balance_after"`
	Description    string         `json:"description"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	CreatedBy      uint           `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
}
