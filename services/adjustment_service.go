package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdjustmentService lets admins correct a wallet by hand. Corrections are new
// ledger entries; existing entries are never edited.
type AdjustmentService struct {
	db      *gorm.DB
	wallets *WalletStore
}

func NewAdjustmentService(db *gorm.DB, wallets *WalletStore) *AdjustmentService {
	return &AdjustmentService{db: db, wallets: wallets}
}

// AddFunds credits the user's wallet.
func (s *AdjustmentService) AddFunds(ctx context.Context, actor Actor, userID uint, amount money.Money, description string) (*models.Wallet, *models.LedgerEntry, error) {
	return s.adjust(ctx, actor, userID, amount, description, models.LedgerKindAdminAdjustmentAdd)
}

// DeductFunds debits the user's wallet. A description is mandatory and the balance
// never goes below zero.
func (s *AdjustmentService) DeductFunds(ctx context.Context, actor Actor, userID uint, amount money.Money, description string) (*models.Wallet, *models.LedgerEntry, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(description) == "" {
		return nil, nil, ErrDescriptionRequired
	}
	return s.adjust(ctx, actor, userID, amount, description, models.LedgerKindAdminAdjustmentDeduct)
}

func (s *AdjustmentService) adjust(ctx context.Context, actor Actor, userID uint, amount money.Money, description string, kind models.LedgerKind) (*models.Wallet, *models.LedgerEntry, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, nil, err
	}
	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: adjustment must be positive", ErrInvalidAmount)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Manual adjustment"
	}

	in := EntryInput{
		Kind:        kind,
		ReferenceID: "ADJ-" + uuid.New().String(),
		Description: description,
		CreatedBy:   actor.ID,
	}

	var (
		wallet *models.Wallet
		entry  *models.LedgerEntry
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := getOrCreateWallet(tx, userID)
		if err != nil {
			return err
		}
		if kind.IsCredit() {
			wallet, entry, err = s.wallets.CreditTx(tx, w.ID, amount, in)
		} else {
			wallet, entry, err = s.wallets.DebitTx(tx, w.ID, amount, in)
		}
		return err
	})
	if err != nil {
		utils.LogError("Wallet adjustment failed - User ID: %d, Admin ID: %d, Kind: %s, Amount: %d, Error: %v",
			userID, actor.ID, kind, amount, err)
		return nil, nil, err
	}

	utils.LogInfo("Wallet adjusted - User ID: %d, Admin ID: %d, Kind: %s, Amount: %d, Balance: %d",
		userID, actor.ID, kind, amount, wallet.Balance)
	return wallet, entry, nil
}
