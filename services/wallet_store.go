package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntryInput describes the ledger entry written alongside a balance change.
type EntryInput struct {
	Kind           models.LedgerKind
	ReferenceID    string
	TopupRequestID *uint
	Description    string
	Metadata       map[string]interface{}
	CreatedBy      uint
	// UniqueReference rejects the write when the wallet already has an entry of the
	// same kind with the same ReferenceID.
	UniqueReference bool
}

// ReconcileReport compares a wallet row against its ledger.
type ReconcileReport struct {
	WalletID       uint        `json:"wallet_id"`
	UserID         uint        `json:"user_id"`
	Balance        money.Money `json:"balance"`
	TotalDeposited money.Money `json:"total_deposited"`
	TotalSpent     money.Money `json:"total_spent"`
	LedgerSum      money.Money `json:"ledger_sum"`
	EntryCount     int64       `json:"entry_count"`
	Balanced       bool        `json:"balanced"`
}

// WalletStore is the only code path that changes a wallet balance. Every change
// appends a ledger entry in the same transaction.
type WalletStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewWalletStore(db *gorm.DB) *WalletStore {
	return &WalletStore{db: db, now: utcNow}
}

// WithClock overrides the time source.
func (s *WalletStore) WithClock(now func() time.Time) *WalletStore {
	s.now = now
	return s
}

// GetOrCreate returns the user's wallet, creating an empty one on first access.
func (s *WalletStore) GetOrCreate(ctx context.Context, userID uint) (*models.Wallet, error) {
	return getOrCreateWallet(s.db.WithContext(ctx), userID)
}

// Get returns the wallet with the given id.
func (s *WalletStore) Get(ctx context.Context, walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.WithContext(ctx).First(&wallet, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("wallet %d: %w", walletID, ErrNotFound)
		}
		return nil, err
	}
	return &wallet, nil
}

// Credit adds amount to the wallet in its own transaction.
func (s *WalletStore) Credit(ctx context.Context, walletID uint, amount money.Money, in EntryInput) (*models.Wallet, *models.LedgerEntry, error) {
	var (
		wallet *models.Wallet
		entry  *models.LedgerEntry
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wallet, entry, err = s.CreditTx(tx, walletID, amount, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, entry, nil
}

// Debit removes amount from the wallet in its own transaction.
func (s *WalletStore) Debit(ctx context.Context, walletID uint, amount money.Money, in EntryInput) (*models.Wallet, *models.LedgerEntry, error) {
	var (
		wallet *models.Wallet
		entry  *models.LedgerEntry
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wallet, entry, err = s.DebitTx(tx, walletID, amount, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, entry, nil
}

// CreditTx is Credit inside the caller's transaction.
func (s *WalletStore) CreditTx(tx *gorm.DB, walletID uint, amount money.Money, in EntryInput) (*models.Wallet, *models.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: credit must be positive, got %d", ErrInvalidAmount, amount)
	}
	if !in.Kind.IsCredit() {
		return nil, nil, fmt.Errorf("%w: %s is not a credit kind", ErrValidation, in.Kind)
	}

	wallet, err := lockWallet(tx, walletID)
	if err != nil {
		return nil, nil, err
	}
	if err := checkUniqueReference(tx, wallet.ID, in); err != nil {
		return nil, nil, err
	}

	balance, err := wallet.Balance.Add(amount)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: wallet %d balance: %v", ErrInvalidAmount, wallet.ID, err)
	}
	deposited, err := wallet.TotalDeposited.Add(amount)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: wallet %d deposits: %v", ErrInvalidAmount, wallet.ID, err)
	}
	wallet.Balance = balance
	wallet.TotalDeposited = deposited

	entry, err := s.apply(tx, wallet, amount, in)
	if err != nil {
		return nil, nil, err
	}
	utils.LogDebug("Credited wallet ID: %d, Amount: %d, Kind: %s, Balance: %d", wallet.ID, amount, in.Kind, wallet.Balance)
	return wallet, entry, nil
}

// DebitTx is Debit inside the caller's transaction. The balance is left untouched
// when it cannot cover amount.
func (s *WalletStore) DebitTx(tx *gorm.DB, walletID uint, amount money.Money, in EntryInput) (*models.Wallet, *models.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: debit must be positive, got %d", ErrInvalidAmount, amount)
	}
	if in.Kind.IsCredit() {
		return nil, nil, fmt.Errorf("%w: %s is not a debit kind", ErrValidation, in.Kind)
	}

	wallet, err := lockWallet(tx, walletID)
	if err != nil {
		return nil, nil, err
	}
	if err := checkUniqueReference(tx, wallet.ID, in); err != nil {
		return nil, nil, err
	}

	remaining, err := wallet.Balance.Sub(amount)
	if err != nil {
		if errors.Is(err, money.ErrNegativeResult) {
			return nil, nil, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, wallet.Balance, amount)
		}
		return nil, nil, err
	}
	spent, err := wallet.TotalSpent.Add(amount)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: wallet %d spend: %v", ErrInvalidAmount, wallet.ID, err)
	}
	wallet.Balance = remaining
	wallet.TotalSpent = spent

	entry, err := s.apply(tx, wallet, amount.Neg(), in)
	if err != nil {
		return nil, nil, err
	}
	utils.LogDebug("Debited wallet ID: %d, Amount: %d, Kind: %s, Balance: %d", wallet.ID, amount, in.Kind, wallet.Balance)
	return wallet, entry, nil
}

// apply persists the new wallet totals with a version check and appends the entry.
func (s *WalletStore) apply(tx *gorm.DB, wallet *models.Wallet, delta money.Money, in EntryInput) (*models.LedgerEntry, error) {
	now := s.now()
	res := tx.Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]interface{}{
			"balance":         wallet.Balance,
			"total_deposited": wallet.TotalDeposited,
			"total_spent":     wallet.TotalSpent,
			"version":         wallet.Version + 1,
			"updated_at":      now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("wallet %d: %w", wallet.ID, ErrConcurrentUpdate)
	}
	wallet.Version++
	wallet.UpdatedAt = now

	entry := models.LedgerEntry{
		WalletID:       wallet.ID,
		Amount:         delta,
		Kind:           in.Kind,
		ReferenceID:    in.ReferenceID,
		TopupRequestID: in.TopupRequestID,
		BalanceAfter:   wallet.Balance,
		Description:    in.Description,
		CreatedBy:      in.CreatedBy,
		CreatedAt:      now,
	}
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrValidation, err)
		}
		entry.Metadata = datatypes.JSON(raw)
	}
	if err := tx.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("wallet %d reference %q: %w", wallet.ID, in.ReferenceID, ErrDuplicateEntry)
		}
		return nil, err
	}
	return &entry, nil
}

// ListEntries returns the wallet's ledger, newest first.
func (s *WalletStore) ListEntries(ctx context.Context, walletID uint, req PageRequest) (*Page[models.LedgerEntry], error) {
	req = req.normalize()
	db := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("wallet_id = ?", walletID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}
	var entries []models.LedgerEntry
	if err := db.Order("id DESC").Limit(req.Limit).Offset(req.offset()).Find(&entries).Error; err != nil {
		return nil, err
	}
	return newPage(entries, total, req), nil
}

// EntriesBetween returns the wallet's entries created in [from, to), oldest first.
func (s *WalletStore) EntriesBetween(ctx context.Context, walletID uint, from, to time.Time) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("wallet_id = ? AND created_at >= ? AND created_at < ?", walletID, from, to).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// Reconcile checks balance == deposited - spent and balance == sum(ledger).
func (s *WalletStore) Reconcile(ctx context.Context, walletID uint) (*ReconcileReport, error) {
	wallet, err := s.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}

	var agg struct {
		Total int64
		Count int64
	}
	err = s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("wallet_id = ?", walletID).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		WalletID:       wallet.ID,
		UserID:         wallet.UserID,
		Balance:        wallet.Balance,
		TotalDeposited: wallet.TotalDeposited,
		TotalSpent:     wallet.TotalSpent,
		LedgerSum:      money.New(agg.Total),
		EntryCount:     agg.Count,
	}
	report.Balanced = wallet.Reconciled() && report.LedgerSum == wallet.Balance
	if !report.Balanced {
		utils.LogError("Wallet ID: %d failed reconciliation - Balance: %d, Deposited: %d, Spent: %d, Ledger: %d",
			wallet.ID, wallet.Balance, wallet.TotalDeposited, wallet.TotalSpent, report.LedgerSum)
	}
	return report, nil
}

func getOrCreateWallet(tx *gorm.DB, userID uint) (*models.Wallet, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	var wallet models.Wallet
	err := tx.Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.Wallet{UserID: userID}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&wallet)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another caller created it between our read and insert.
		wallet = models.Wallet{}
		if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			return nil, err
		}
		return &wallet, nil
	}
	utils.LogInfo("Created new wallet ID: %d for user ID: %d", wallet.ID, userID)
	return &wallet, nil
}

func lockWallet(tx *gorm.DB, walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, walletID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("wallet %d: %w", walletID, ErrNotFound)
		}
		return nil, err
	}
	return &wallet, nil
}

func checkUniqueReference(tx *gorm.DB, walletID uint, in EntryInput) error {
	if !in.UniqueReference {
		return nil
	}
	if in.ReferenceID == "" {
		return fmt.Errorf("%w: reference id is required", ErrValidation)
	}
	var count int64
	err := tx.Model(&models.LedgerEntry{}).
		Where("wallet_id = ? AND kind = ? AND reference_id = ?", walletID, in.Kind, in.ReferenceID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("wallet %d reference %q: %w", walletID, in.ReferenceID, ErrDuplicateEntry)
	}
	return nil
}

func utcNow() time.Time { return time.Now().UTC() }
