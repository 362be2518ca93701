package services

import (
	"context"
	"strings"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/utils"
	"gorm.io/gorm"
)

// ReviewService is the admin entry point for deciding top-up requests.
type ReviewService struct {
	db     *gorm.DB
	topups *TopupService
	outbox *Outbox
}

func NewReviewService(db *gorm.DB, topups *TopupService, outbox *Outbox) *ReviewService {
	return &ReviewService{db: db, topups: topups, outbox: outbox}
}

// ApproveRequest credits the owner's wallet and marks the request APPROVED. The
// owner is notified after commit.
func (s *ReviewService) ApproveRequest(ctx context.Context, actor Actor, id uint, notes string) (*models.TopupRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var (
		req   *models.TopupRequest
		entry *models.LedgerEntry
		evt   *models.NotificationEvent
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, entry, err = s.topups.ApproveTx(tx, id, actor.ID, notes)
		if err != nil {
			return err
		}
		evt, err = s.outbox.EnqueueTx(tx, req, models.OutcomeApproved)
		return err
	})
	if err != nil {
		utils.LogError("Approve failed - Request ID: %d, Admin ID: %d, Error: %v", id, actor.ID, err)
		return nil, err
	}

	utils.LogInfo("Top-up approved - Request ID: %d, Admin ID: %d, Amount: %d, Ledger Entry ID: %d, Balance After: %d",
		req.ID, actor.ID, req.Amount, entry.ID, entry.BalanceAfter)
	s.outbox.Dispatch(ctx, evt)
	return req, nil
}

// RejectRequest marks the request REJECTED with the given reason.
func (s *ReviewService) RejectRequest(ctx context.Context, actor Actor, id uint, notes string) (*models.TopupRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notes) == "" {
		return nil, ErrNotesRequired
	}

	var (
		req *models.TopupRequest
		evt *models.NotificationEvent
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = s.topups.RejectTx(tx, id, actor.ID, notes)
		if err != nil {
			return err
		}
		evt, err = s.outbox.EnqueueTx(tx, req, models.OutcomeRejected)
		return err
	})
	if err != nil {
		utils.LogError("Reject failed - Request ID: %d, Admin ID: %d, Error: %v", id, actor.ID, err)
		return nil, err
	}

	utils.LogInfo("Top-up rejected - Request ID: %d, Admin ID: %d, Notes: %s", req.ID, actor.ID, req.ReviewNotes)
	s.outbox.Dispatch(ctx, evt)
	return req, nil
}
