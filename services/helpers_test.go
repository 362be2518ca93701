package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/notify"
	"github.com/Govind-619/WalletDesk/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	fail   bool
}

func (r *recordingNotifier) Notify(_ context.Context, evt notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if r.fail {
		return errors.New("sink unavailable")
	}
	return nil
}

func (r *recordingNotifier) outcomes() []models.NotificationOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NotificationOutcome, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Outcome)
	}
	return out
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db       *gorm.DB
	clock    *fixedClock
	notifier *recordingNotifier
	wallets  *WalletStore
	outbox   *Outbox
	topups   *TopupService
	review   *ReviewService
	adjust   *AdjustmentService
	usage    *UsageService
	admin    Actor
}

const testExpiry = 72 * time.Hour

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	clock := &fixedClock{now: t0}
	rec := &recordingNotifier{}

	wallets := NewWalletStore(db).WithClock(clock.Now)
	outbox := NewOutbox(db, rec).WithClock(clock.Now)
	topups := NewTopupService(db, wallets, outbox, TopupConfig{
		MinAmount: money.New(10000),
		MaxAmount: money.New(10000000),
		Expiry:    testExpiry,
	}, nil).WithClock(clock.Now)

	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)

	return &testEnv{
		db:       db,
		clock:    clock,
		notifier: rec,
		wallets:  wallets,
		outbox:   outbox,
		topups:   topups,
		review:   NewReviewService(db, topups, outbox),
		adjust:   NewAdjustmentService(db, wallets),
		usage:    NewUsageService(db, wallets, nil),
		admin:    Actor{ID: admin.ID, Role: models.RoleAdmin},
	}
}

func (e *testEnv) newUser(t *testing.T, email string) Actor {
	t.Helper()
	u := testutil.CreateUser(t, e.db, email, models.RoleUser)
	return Actor{ID: u.ID, Role: models.RoleUser}
}

func (e *testEnv) createTopup(t *testing.T, user Actor, amount int64, method models.PaymentMethod) *models.TopupRequest {
	t.Helper()
	req, err := e.topups.Create(context.Background(), CreateTopupInput{
		UserID: user.ID,
		Amount: money.New(amount),
		Method: method,
	})
	require.NoError(t, err)
	return req
}

func (e *testEnv) wallet(t *testing.T, userID uint) *models.Wallet {
	t.Helper()
	w, err := e.wallets.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	return w
}

func (e *testEnv) entries(t *testing.T, walletID uint) []models.LedgerEntry {
	t.Helper()
	var entries []models.LedgerEntry
	require.NoError(t, e.db.Where("wallet_id = ?", walletID).Order("id ASC").Find(&entries).Error)
	return entries
}

// assertReconciled checks both wallet invariants.
func (e *testEnv) assertReconciled(t *testing.T, walletID uint) {
	t.Helper()
	report, err := e.wallets.Reconcile(context.Background(), walletID)
	require.NoError(t, err)
	require.True(t, report.Balanced, "wallet %d out of balance: %+v", walletID, report)
}

// beforeFirstUpdate runs query in the updating transaction just before the first
// UPDATE on table, as a writer committing between our read and our write would.
func beforeFirstUpdate(t *testing.T, db *gorm.DB, table, query string, args ...interface{}) {
	t.Helper()
	var once sync.Once
	err := db.Callback().Update().Before("gorm:update").Register("test:interleave:"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		once.Do(func() {
			if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, query, args...); err != nil {
				tx.AddError(err)
			}
		})
	})
	require.NoError(t, err)
}
