package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	expireBatchSize = 200
	maxExportRows   = 10000
)

// TopupConfig holds the limits applied to new requests.
type TopupConfig struct {
	MinAmount money.Money
	MaxAmount money.Money // zero means money.MaxAmount
	Expiry    time.Duration
}

// CreateTopupInput is a user's request to fund their wallet.
type CreateTopupInput struct {
	UserID uint                 `validate:"required"`
	Method models.PaymentMethod `validate:"max=32"`
	Amount money.Money
}

// TopupFilter narrows admin listings. Nil fields are not filtered on.
type TopupFilter struct {
	Status      *models.TopupStatus
	UserID      *uint
	Method      *models.PaymentMethod
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	PageRequest
}

// TopupService owns the top-up request lifecycle.
type TopupService struct {
	db       *gorm.DB
	wallets  *WalletStore
	outbox   *Outbox
	cfg      TopupConfig
	validate *validator.Validate
	now      func() time.Time
}

func NewTopupService(db *gorm.DB, wallets *WalletStore, outbox *Outbox, cfg TopupConfig, v *validator.Validate) *TopupService {
	if v == nil {
		v = validator.New()
	}
	return &TopupService{
		db:       db,
		wallets:  wallets,
		outbox:   outbox,
		cfg:      cfg,
		validate: v,
		now:      utcNow,
	}
}

// WithClock overrides the time source.
func (s *TopupService) WithClock(now func() time.Time) *TopupService {
	s.now = now
	return s
}

// maxAmount is the configured ceiling, or money.MaxAmount when none is set.
func (s *TopupService) maxAmount() money.Money {
	if s.cfg.MaxAmount.IsPositive() && s.cfg.MaxAmount < money.MaxAmount {
		return s.cfg.MaxAmount
	}
	return money.MaxAmount
}

// Create opens a PENDING request. The user's wallet is created on first use.
func (s *TopupService) Create(ctx context.Context, in CreateTopupInput) (*models.TopupRequest, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.Amount < s.cfg.MinAmount || !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: minimum top-up is %s", ErrInvalidAmount, s.cfg.MinAmount)
	}
	if limit := s.maxAmount(); in.Amount > limit {
		return nil, fmt.Errorf("%w: maximum top-up is %s", ErrInvalidAmount, limit)
	}
	if !in.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, in.Method)
	}

	now := s.now()
	req := models.TopupRequest{
		UserID:        in.UserID,
		Amount:        in.Amount,
		PaymentMethod: in.Method,
		Status:        models.TopupStatusPending,
		ExpiresAt:     now.Add(s.cfg.Expiry),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getOrCreateWallet(tx, in.UserID); err != nil {
			return err
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Top-up request created - ID: %d, User ID: %d, Amount: %d, Method: %s", req.ID, req.UserID, req.Amount, req.PaymentMethod)
	return &req, nil
}

// AttachProof records the payment proof for a manual request and queues it for
// review. Only the request owner may attach.
func (s *TopupService) AttachProof(ctx context.Context, actor Actor, id uint, imageRef string) (*models.TopupRequest, error) {
	imageRef = strings.TrimSpace(imageRef)
	if imageRef == "" {
		return nil, fmt.Errorf("%w: proof image is required", ErrValidation)
	}

	var (
		req *models.TopupRequest
		evt *models.NotificationEvent
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guard := func(r *models.TopupRequest) error {
			if r.UserID != actor.ID {
				return ErrForbidden
			}
			if !r.PaymentMethod.IsManual() {
				return &StateError{RequestID: r.ID, Status: r.Status, Event: EventAttachProof, Err: ErrInvalidState}
			}
			return nil
		}
		var err error
		req, err = s.transitionTx(tx, id, EventAttachProof, guard, map[string]interface{}{
			"proof_image_url": imageRef,
		})
		if err != nil {
			return err
		}
		evt, err = s.outbox.EnqueueTx(tx, req, models.OutcomeSubmitted)
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Proof attached - Request ID: %d, User ID: %d", req.ID, req.UserID)
	s.outbox.Dispatch(ctx, evt)
	return req, nil
}

// OnPaymentConfirmed is called by the automatic payment provider.
func (s *TopupService) OnPaymentConfirmed(ctx context.Context, id uint) (*models.TopupRequest, error) {
	var (
		req *models.TopupRequest
		evt *models.NotificationEvent
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guard := func(r *models.TopupRequest) error {
			if r.PaymentMethod != models.PaymentMethodAutomatic {
				return &StateError{RequestID: r.ID, Status: r.Status, Event: EventPaymentConfirmed, Err: ErrInvalidState}
			}
			return nil
		}
		var err error
		req, err = s.transitionTx(tx, id, EventPaymentConfirmed, guard, nil)
		if err != nil {
			return err
		}
		evt, err = s.outbox.EnqueueTx(tx, req, models.OutcomeSubmitted)
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Payment confirmed - Request ID: %d, User ID: %d, Amount: %d", req.ID, req.UserID, req.Amount)
	s.outbox.Dispatch(ctx, evt)
	return req, nil
}

// ApproveTx moves the request to APPROVED and credits the owner's wallet with a
// single TOPUP entry, all inside tx.
func (s *TopupService) ApproveTx(tx *gorm.DB, id, adminID uint, notes string) (*models.TopupRequest, *models.LedgerEntry, error) {
	now := s.now()
	req, err := s.transitionTx(tx, id, EventApprove, nil, map[string]interface{}{
		"review_notes": strings.TrimSpace(notes),
		"reviewed_by":  adminID,
		"reviewed_at":  now,
	})
	if err != nil {
		return nil, nil, err
	}

	wallet, err := getOrCreateWallet(tx, req.UserID)
	if err != nil {
		return nil, nil, err
	}
	requestID := req.ID
	_, entry, err := s.wallets.CreditTx(tx, wallet.ID, req.Amount, EntryInput{
		Kind:           models.LedgerKindTopup,
		ReferenceID:    strconv.FormatUint(uint64(req.ID), 10),
		TopupRequestID: &requestID,
		Description:    fmt.Sprintf("Wallet top-up via %s", req.PaymentMethod),
		Metadata: map[string]interface{}{
			"payment_method": req.PaymentMethod,
		},
		CreatedBy: adminID,
	})
	if err != nil {
		return nil, nil, err
	}
	return req, entry, nil
}

// RejectTx moves the request to REJECTED inside tx. The wallet is not touched.
func (s *TopupService) RejectTx(tx *gorm.DB, id, adminID uint, notes string) (*models.TopupRequest, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, ErrNotesRequired
	}
	return s.transitionTx(tx, id, EventReject, nil, map[string]interface{}{
		"review_notes": notes,
		"reviewed_by":  adminID,
		"reviewed_at":  s.now(),
	})
}

// ExpireStale moves every PENDING or UNDER_REVIEW request created before
// now-threshold to EXPIRED and returns how many moved. Running it again is a no-op.
func (s *TopupService) ExpireStale(ctx context.Context, now time.Time, threshold time.Duration) (int64, error) {
	cutoff := now.UTC().Add(-threshold)
	var total int64

	for {
		var (
			moved  int64
			events []*models.NotificationEvent
			batch  []models.TopupRequest
		)
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("status IN ? AND created_at < ?",
					[]models.TopupStatus{models.TopupStatusPending, models.TopupStatusUnderReview}, cutoff).
				Order("id ASC").
				Limit(expireBatchSize).
				Find(&batch).Error
			if err != nil {
				return err
			}

			for i := range batch {
				req := &batch[i]
				if _, err := NextTopupStatus(req.Status, EventExpire); err != nil {
					continue
				}
				res := tx.Model(&models.TopupRequest{}).
					Where("id = ? AND status = ?", req.ID, req.Status).
					Updates(map[string]interface{}{
						"status":     models.TopupStatusExpired,
						"updated_at": now.UTC(),
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					continue
				}
				req.Status = models.TopupStatusExpired
				evt, err := s.outbox.EnqueueTx(tx, req, models.OutcomeExpired)
				if err != nil {
					return err
				}
				events = append(events, evt)
				moved++
			}
			return nil
		})
		if err != nil {
			return total, err
		}

		total += moved
		s.outbox.DispatchAll(ctx, events)
		if len(batch) < expireBatchSize || moved == 0 {
			break
		}
	}

	if total > 0 {
		utils.LogInfo("Expired %d stale top-up requests (cutoff %s)", total, cutoff.Format(time.RFC3339))
	}
	return total, nil
}

// Get returns one request.
func (s *TopupService) Get(ctx context.Context, id uint) (*models.TopupRequest, error) {
	var req models.TopupRequest
	if err := s.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("top-up request %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, newest first.
func (s *TopupService) List(ctx context.Context, f TopupFilter) (*Page[models.TopupRequest], error) {
	db, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	req := f.PageRequest.normalize()

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.TopupRequest
	if err := db.Order("created_at DESC, id DESC").Limit(req.Limit).Offset(req.offset()).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(items, total, req), nil
}

// Export returns every request matching the filter, ignoring paging, up to a fixed cap.
func (s *TopupService) Export(ctx context.Context, f TopupFilter) ([]models.TopupRequest, error) {
	db, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	var items []models.TopupRequest
	err = db.Order("created_at DESC, id DESC").Limit(maxExportRows).Find(&items).Error
	return items, err
}

func (s *TopupService) filtered(ctx context.Context, f TopupFilter) (*gorm.DB, error) {
	db := s.db.WithContext(ctx).Model(&models.TopupRequest{})
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *f.Status)
		}
		db = db.Where("status = ?", *f.Status)
	}
	if f.Method != nil {
		if !f.Method.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, *f.Method)
		}
		db = db.Where("payment_method = ?", *f.Method)
	}
	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}
	if f.CreatedFrom != nil {
		db = db.Where("created_at >= ?", f.CreatedFrom.UTC())
	}
	if f.CreatedTo != nil {
		db = db.Where("created_at < ?", f.CreatedTo.UTC())
	}
	return db, nil
}

// transitionTx locks the request, applies ev and writes the new status with an
// update conditioned on the status that was read.
func (s *TopupService) transitionTx(tx *gorm.DB, id uint, ev TopupEvent, guard func(*models.TopupRequest) error, changes map[string]interface{}) (*models.TopupRequest, error) {
	req, err := lockTopup(tx, id)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(req); err != nil {
			return nil, err
		}
	}
	next, err := NextTopupStatus(req.Status, ev)
	if err != nil {
		return nil, &StateError{RequestID: req.ID, Status: req.Status, Event: ev, Err: err}
	}

	updates := map[string]interface{}{
		"status":     next,
		"updated_at": s.now(),
	}
	for k, v := range changes {
		updates[k] = v
	}
	res := tx.Model(&models.TopupRequest{}).Where("id = ? AND status = ?", req.ID, req.Status).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var current models.TopupRequest
		if err := tx.First(&current, req.ID).Error; err != nil {
			return nil, err
		}
		if _, err := NextTopupStatus(current.Status, ev); err != nil {
			return nil, &StateError{RequestID: current.ID, Status: current.Status, Event: ev, Err: err}
		}
		return nil, fmt.Errorf("top-up request %d: %w", req.ID, ErrConcurrentUpdate)
	}

	var updated models.TopupRequest
	if err := tx.First(&updated, req.ID).Error; err != nil {
		return nil, err
	}
	utils.LogDebug("Top-up request ID: %d moved %s -> %s on %s", updated.ID, req.Status, updated.Status, ev)
	return &updated, nil
}

func lockTopup(tx *gorm.DB, id uint) (*models.TopupRequest, error) {
	var req models.TopupRequest
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("top-up request %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &req, nil
}
