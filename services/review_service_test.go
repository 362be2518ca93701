package services

import (
	"context"
	"math"
	"strconv"
	"sync"
	"testing"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveScenario(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	ctx := context.Background()

	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)
	_, err := env.topups.AttachProof(ctx, user, req.ID, "/uploads/proofs/qris.png")
	require.NoError(t, err)

	approved, err := env.review.ApproveRequest(ctx, env.admin, req.ID, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.TopupStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, env.admin.ID, *approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
	assert.Equal(t, "looks good", approved.ReviewNotes)

	w := env.wallet(t, user.ID)
	assert.Equal(t, money.New(50000), w.Balance)
	assert.Equal(t, money.New(50000), w.TotalDeposited)

	entries := env.entries(t, w.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerKindTopup, entries[0].Kind)
	assert.Equal(t, strconv.FormatUint(uint64(req.ID), 10), entries[0].ReferenceID)
	require.NotNil(t, entries[0].TopupRequestID)
	assert.Equal(t, req.ID, *entries[0].TopupRequestID)
	assert.Equal(t, money.New(50000), entries[0].BalanceAfter)
	assert.Equal(t, env.admin.ID, entries[0].CreatedBy)

	assert.Equal(t, []models.NotificationOutcome{models.OutcomeSubmitted, models.OutcomeApproved}, env.notifier.outcomes())
	env.assertReconciled(t, w.ID)
}

func TestRejectScenario(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	ctx := context.Background()

	req := env.createTopup(t, user, 50000, models.PaymentMethodBankMandiri)
	_, err := env.topups.AttachProof(ctx, user, req.ID, "/uploads/proofs/transfer.jpg")
	require.NoError(t, err)

	rejected, err := env.review.RejectRequest(ctx, env.admin, req.ID, "invalid proof")
	require.NoError(t, err)
	assert.Equal(t, models.TopupStatusRejected, rejected.Status)
	assert.Equal(t, "invalid proof", rejected.ReviewNotes)

	w := env.wallet(t, user.ID)
	assert.True(t, w.Balance.IsZero())
	assert.Empty(t, env.entries(t, w.ID))

	env.notifier.mu.Lock()
	last := env.notifier.events[len(env.notifier.events)-1]
	env.notifier.mu.Unlock()
	assert.Equal(t, models.OutcomeRejected, last.Outcome)
	assert.Equal(t, "invalid proof", last.Notes)
	assert.Equal(t, user.ID, last.UserID)
}

func TestRejectRequiresNotes(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)

	_, err := env.review.RejectRequest(context.Background(), env.admin, req.ID, "   ")
	assert.ErrorIs(t, err, ErrNotesRequired)

	got, err := env.topups.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopupStatusPending, got.Status)
}

func TestReviewRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)
	ctx := context.Background()

	_, err := env.review.ApproveRequest(ctx, user, req.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.review.RejectRequest(ctx, user, req.ID, "nope")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.review.ApproveRequest(ctx, Actor{Role: models.RoleAdmin}, req.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.review.ApproveRequest(ctx, env.admin, 4242, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveIsAtMostOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)
	ctx := context.Background()

	_, err := env.review.ApproveRequest(ctx, env.admin, req.ID, "")
	require.NoError(t, err)

	_, err = env.review.ApproveRequest(ctx, env.admin, req.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.TopupStatusApproved, stateErr.Status)

	_, err = env.review.RejectRequest(ctx, env.admin, req.ID, "too late")
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	w := env.wallet(t, user.ID)
	assert.Equal(t, money.New(50000), w.Balance)
	assert.Len(t, env.entries(t, w.ID), 1)
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.review.ApproveRequest(ctx, env.admin, req.ID, "")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrAlreadyFinalized)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	w := env.wallet(t, user.ID)
	assert.Equal(t, money.New(50000), w.Balance)
	assert.Len(t, env.entries(t, w.ID), 1)
	env.assertReconciled(t, w.ID)
}

func TestApproveRejectRace(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)
	ctx := context.Background()

	var (
		wg                    sync.WaitGroup
		approveErr, rejectErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = env.review.ApproveRequest(ctx, env.admin, req.ID, "")
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = env.review.RejectRequest(ctx, env.admin, req.ID, "duplicate transfer")
	}()
	wg.Wait()

	require.True(t, (approveErr == nil) != (rejectErr == nil), "exactly one review must win: approve=%v reject=%v", approveErr, rejectErr)

	got, err := env.topups.Get(ctx, req.ID)
	require.NoError(t, err)
	w := env.wallet(t, user.ID)
	if approveErr == nil {
		assert.ErrorIs(t, rejectErr, ErrAlreadyFinalized)
		assert.Equal(t, models.TopupStatusApproved, got.Status)
		assert.Equal(t, money.New(50000), w.Balance)
	} else {
		assert.ErrorIs(t, approveErr, ErrAlreadyFinalized)
		assert.Equal(t, models.TopupStatusRejected, got.Status)
		assert.True(t, w.Balance.IsZero())
	}
	env.assertReconciled(t, w.ID)
}

func TestNotifierFailureDoesNotFailReview(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = true
	user := env.newUser(t, "user@example.com")
	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)

	_, err := env.review.ApproveRequest(context.Background(), env.admin, req.ID, "")
	require.NoError(t, err)

	var evt models.NotificationEvent
	require.NoError(t, env.db.Where("request_id = ? AND outcome = ?", req.ID, models.OutcomeApproved).First(&evt).Error)
	assert.Nil(t, evt.DeliveredAt)
	assert.Equal(t, 1, evt.Attempts)
	assert.Contains(t, evt.LastError, "sink unavailable")
}

func TestApproveStopsAtAmountCeiling(t *testing.T) {
	env := newTestEnv(t)
	topups := NewTopupService(env.db, env.wallets, env.outbox, TopupConfig{
		MinAmount: money.New(10000),
		Expiry:    testExpiry,
	}, nil).WithClock(env.clock.Now)
	review := NewReviewService(env.db, topups, env.outbox)
	user := env.newUser(t, "user@example.com")
	ctx := context.Background()

	_, err := topups.Create(ctx, CreateTopupInput{UserID: user.ID, Amount: money.New(math.MaxInt64 - 5), Method: models.PaymentMethodQRIS})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	big, err := topups.Create(ctx, CreateTopupInput{UserID: user.ID, Amount: money.MaxAmount - 5, Method: models.PaymentMethodQRIS})
	require.NoError(t, err)
	_, err = review.ApproveRequest(ctx, env.admin, big.ID, "")
	require.NoError(t, err)

	small, err := topups.Create(ctx, CreateTopupInput{UserID: user.ID, Amount: money.New(10000), Method: models.PaymentMethodQRIS})
	require.NoError(t, err)
	require.NotPanics(t, func() {
		_, err = review.ApproveRequest(ctx, env.admin, small.ID, "")
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	got, err := topups.Get(ctx, small.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopupStatusPending, got.Status)

	w := env.wallet(t, user.ID)
	assert.Equal(t, money.MaxAmount-5, w.Balance)
	assert.Len(t, env.entries(t, w.ID), 1)
	env.assertReconciled(t, w.ID)
}

func TestApproveLosesToInterleavedReject(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)
	ctx := context.Background()

	beforeFirstUpdate(t, env.db, "topup_requests", "UPDATE topup_requests SET status = ? WHERE id = ?",
		string(models.TopupStatusRejected), req.ID)

	_, err := env.review.ApproveRequest(ctx, env.admin, req.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.TopupStatusRejected, stateErr.Status)

	got, err := env.topups.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopupStatusPending, got.Status)

	w := env.wallet(t, user.ID)
	assert.True(t, w.Balance.IsZero())
	assert.Empty(t, env.entries(t, w.ID))
}

func TestApproveLosesToInterleavedProofUpload(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "user@example.com")
	req := env.createTopup(t, user, 50000, models.PaymentMethodQRIS)
	ctx := context.Background()

	beforeFirstUpdate(t, env.db, "topup_requests", "UPDATE topup_requests SET status = ? WHERE id = ?",
		string(models.TopupStatusUnderReview), req.ID)

	_, err := env.review.ApproveRequest(ctx, env.admin, req.ID, "")
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	w := env.wallet(t, user.ID)
	assert.True(t, w.Balance.IsZero())
	assert.Empty(t, env.entries(t, w.ID))
}
