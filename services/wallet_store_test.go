package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")

	first := env.wallet(t, user.ID)
	second := env.wallet(t, user.ID)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Balance.IsZero())

	var count int64
	require.NoError(t, env.db.Model(&models.Wallet{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")

	var wg sync.WaitGroup
	ids := make([]uint, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := env.wallets.GetOrCreate(context.Background(), user.ID)
			if assert.NoError(t, err) {
				ids[i] = w.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestCreditAndDebit(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)
	ctx := context.Background()

	w, entry, err := env.wallets.Credit(ctx, w.ID, money.New(30000), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd, ReferenceID: "a"})
	require.NoError(t, err)
	assert.Equal(t, money.New(30000), w.Balance)
	assert.Equal(t, money.New(30000), entry.Amount)
	assert.Equal(t, money.New(30000), entry.BalanceAfter)

	w, entry, err = env.wallets.Debit(ctx, w.ID, money.New(12000), EntryInput{Kind: models.LedgerKindUsageDebit, ReferenceID: "b"})
	require.NoError(t, err)
	assert.Equal(t, money.New(18000), w.Balance)
	assert.Equal(t, money.New(30000), w.TotalDeposited)
	assert.Equal(t, money.New(12000), w.TotalSpent)
	assert.Equal(t, money.New(-12000), entry.Amount)
	assert.Equal(t, money.New(18000), entry.BalanceAfter)
	assert.Equal(t, uint(2), w.Version)

	env.assertReconciled(t, w.ID)
}

func TestCreditDebitRejectNonPositiveAmounts(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)
	ctx := context.Background()

	for _, amount := range []money.Money{0, -1} {
		_, _, err := env.wallets.Credit(ctx, w.ID, amount, EntryInput{Kind: models.LedgerKindTopup})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, _, err = env.wallets.Debit(ctx, w.ID, amount, EntryInput{Kind: models.LedgerKindUsageDebit})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Empty(t, env.entries(t, w.ID))
}

func TestCreditRejectsDebitKind(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)

	_, _, err := env.wallets.Credit(context.Background(), w.ID, money.New(100), EntryInput{Kind: models.LedgerKindUsageDebit})
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = env.wallets.Debit(context.Background(), w.ID, money.New(100), EntryInput{Kind: models.LedgerKindTopup})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDebitFloor(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)
	ctx := context.Background()

	_, _, err := env.wallets.Credit(ctx, w.ID, money.New(10000), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
	require.NoError(t, err)

	_, _, err = env.wallets.Debit(ctx, w.ID, money.New(10001), EntryInput{Kind: models.LedgerKindUsageDebit})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	after := env.wallet(t, user.ID)
	assert.Equal(t, money.New(10000), after.Balance)
	assert.Len(t, env.entries(t, w.ID), 1)

	_, _, err = env.wallets.Debit(ctx, w.ID, money.New(10000), EntryInput{Kind: models.LedgerKindUsageDebit})
	require.NoError(t, err)
	assert.True(t, env.wallet(t, user.ID).Balance.IsZero())
	env.assertReconciled(t, w.ID)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)
	ctx := context.Background()

	_, _, err := env.wallets.Credit(ctx, w.ID, money.New(50000), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := env.wallets.Debit(ctx, w.ID, money.New(10000), EntryInput{Kind: models.LedgerKindUsageDebit})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.True(t, env.wallet(t, user.ID).Balance.IsZero())
	env.assertReconciled(t, w.ID)
}

func TestUnknownWallet(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.wallets.Credit(context.Background(), 999, money.New(1), EntryInput{Kind: models.LedgerKindTopup})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.wallets.Reconcile(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTopupRequestIDIsUniqueInLedger(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)
	ctx := context.Background()
	reqID := uint(77)

	in := EntryInput{Kind: models.LedgerKindTopup, ReferenceID: "77", TopupRequestID: &reqID}
	_, _, err := env.wallets.Credit(ctx, w.ID, money.New(20000), in)
	require.NoError(t, err)

	_, _, err = env.wallets.Credit(ctx, w.ID, money.New(20000), in)
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	after := env.wallet(t, user.ID)
	assert.Equal(t, money.New(20000), after.Balance)
	env.assertReconciled(t, w.ID)
}

func TestListEntriesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, _, err := env.wallets.Credit(ctx, w.ID, money.New(int64(i*1000)), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
		require.NoError(t, err)
	}

	page, err := env.wallets.ListEntries(ctx, w.ID, PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, money.New(3000), page.Items[0].Amount)
	assert.Equal(t, money.New(6000), page.Items[0].BalanceAfter)

	page, err = env.wallets.ListEntries(ctx, w.ID, PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, money.New(1000), page.Items[0].Amount)
}

func TestEntriesBetween(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)
	ctx := context.Background()

	_, _, err := env.wallets.Credit(ctx, w.ID, money.New(1000), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
	require.NoError(t, err)
	env.clock.Advance(48 * time.Hour)
	_, _, err = env.wallets.Credit(ctx, w.ID, money.New(2000), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
	require.NoError(t, err)

	entries, err := env.wallets.EntriesBetween(ctx, w.ID, t0.Add(time.Hour), t0.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, money.New(2000), entries[0].Amount)
}

func TestReconcileDetectsDrift(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)
	ctx := context.Background()

	_, _, err := env.wallets.Credit(ctx, w.ID, money.New(5000), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.Wallet{}).Where("id = ?", w.ID).Update("balance", 7000).Error)

	report, err := env.wallets.Reconcile(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, report.Balanced)
	assert.Equal(t, money.New(5000), report.LedgerSum)
	assert.Equal(t, int64(1), report.EntryCount)
}

func TestApplyRejectsStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	stale := env.wallet(t, user.ID)
	ctx := context.Background()

	_, _, err := env.wallets.Credit(ctx, stale.ID, money.New(1000), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
	require.NoError(t, err)

	err = env.db.Transaction(func(tx *gorm.DB) error {
		stale.Balance = money.New(500)
		stale.TotalDeposited = money.New(500)
		_, err := env.wallets.apply(tx, stale, money.New(500), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
		return err
	})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	after := env.wallet(t, user.ID)
	assert.Equal(t, money.New(1000), after.Balance)
	assert.Equal(t, uint(1), after.Version)
	assert.Len(t, env.entries(t, stale.ID), 1)
	env.assertReconciled(t, stale.ID)
}

func TestCreditLosesToInterleavedWriter(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	w := env.wallet(t, user.ID)

	beforeFirstUpdate(t, env.db, "wallets", "UPDATE wallets SET version = version + 1 WHERE id = ?", w.ID)

	_, _, err := env.wallets.Credit(context.Background(), w.ID, money.New(1000), EntryInput{Kind: models.LedgerKindAdminAdjustmentAdd})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	after := env.wallet(t, user.ID)
	assert.True(t, after.Balance.IsZero())
	assert.Equal(t, uint(0), after.Version)
	assert.Empty(t, env.entries(t, w.ID))
}
