package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ChargeInput is one billable use of a paid feature.
type ChargeInput struct {
	UserID      uint   `validate:"required"`
	Feature     string `validate:"required,max=64"`
	ReferenceID string `validate:"required,max=64"`
	Amount      money.Money
}

// UsageService debits wallets on behalf of the feature backends.
type UsageService struct {
	db       *gorm.DB
	wallets  *WalletStore
	validate *validator.Validate
}

func NewUsageService(db *gorm.DB, wallets *WalletStore, v *validator.Validate) *UsageService {
	if v == nil {
		v = validator.New()
	}
	return &UsageService{db: db, wallets: wallets, validate: v}
}

// Charge debits the user's wallet once per reference id.
func (s *UsageService) Charge(ctx context.Context, in ChargeInput) (*models.Wallet, *models.LedgerEntry, error) {
	in.Feature = strings.TrimSpace(in.Feature)
	in.ReferenceID = strings.TrimSpace(in.ReferenceID)
	if err := s.validate.Struct(in); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !in.Amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: charge must be positive", ErrInvalidAmount)
	}

	var (
		wallet *models.Wallet
		entry  *models.LedgerEntry
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := getOrCreateWallet(tx, in.UserID)
		if err != nil {
			return err
		}
		wallet, entry, err = s.wallets.DebitTx(tx, w.ID, in.Amount, EntryInput{
			Kind:            models.LedgerKindUsageDebit,
			ReferenceID:     in.ReferenceID,
			Description:     fmt.Sprintf("Usage: %s", in.Feature),
			Metadata:        map[string]interface{}{"feature": in.Feature},
			UniqueReference: true,
		})
		return err
	})
	if err != nil {
		utils.LogError("Usage charge failed - User ID: %d, Feature: %s, Reference: %s, Amount: %d, Error: %v",
			in.UserID, in.Feature, in.ReferenceID, in.Amount, err)
		return nil, nil, err
	}

	utils.LogInfo("Usage charged - User ID: %d, Feature: %s, Reference: %s, Amount: %d, Balance: %d",
		in.UserID, in.Feature, in.ReferenceID, in.Amount, wallet.Balance)
	return wallet, entry, nil
}
