package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/notify"
	"github.com/Govind-619/WalletDesk/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxDeliveryAttempts bounds how often the relay retries one event.
const MaxDeliveryAttempts = 10

type outboxPayload struct {
	Amount money.Money          `json:"amount"`
	Method models.PaymentMethod `json:"method"`
	Notes  string               `json:"notes,omitempty"`
}

// Outbox records notification events next to the state change they describe and
// delivers them once the transaction has committed.
type Outbox struct {
	db       *gorm.DB
	notifier notify.Notifier
	now      func() time.Time
}

func NewOutbox(db *gorm.DB, notifier notify.Notifier) *Outbox {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Outbox{db: db, notifier: notifier, now: utcNow}
}

// WithClock overrides the time source.
func (o *Outbox) WithClock(now func() time.Time) *Outbox {
	o.now = now
	return o
}

// EnqueueTx writes an undelivered event for req inside tx.
func (o *Outbox) EnqueueTx(tx *gorm.DB, req *models.TopupRequest, outcome models.NotificationOutcome) (*models.NotificationEvent, error) {
	raw, err := json.Marshal(outboxPayload{
		Amount: req.Amount,
		Method: req.PaymentMethod,
		Notes:  req.ReviewNotes,
	})
	if err != nil {
		return nil, err
	}
	now := o.now()
	evt := models.NotificationEvent{
		RequestID: req.ID,
		UserID:    req.UserID,
		Outcome:   outcome,
		Payload:   datatypes.JSON(raw),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(&evt).Error; err != nil {
		return nil, fmt.Errorf("enqueue %s event for request %d: %w", outcome, req.ID, err)
	}
	return &evt, nil
}

// Dispatch delivers one event and records the result. Delivery failures are logged
// and left for the relay; they are never returned to the caller.
func (o *Outbox) Dispatch(ctx context.Context, evt *models.NotificationEvent) {
	if evt == nil || evt.DeliveredAt != nil {
		return
	}

	sendErr := o.notifier.Notify(ctx, toNotifyEvent(evt))
	now := o.now()
	updates := map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"updated_at": now,
	}
	if sendErr != nil {
		utils.LogError("Notification delivery failed - Event ID: %d, Request ID: %d, Outcome: %s, Error: %v",
			evt.ID, evt.RequestID, evt.Outcome, sendErr)
		updates["last_error"] = truncate(sendErr.Error(), 500)
	} else {
		updates["delivered_at"] = now
		updates["last_error"] = ""
		evt.DeliveredAt = &now
	}
	evt.Attempts++
	if sendErr != nil && evt.Attempts >= MaxDeliveryAttempts {
		utils.LogWarn("Giving up on notification event ID: %d after %d attempts", evt.ID, evt.Attempts)
	}

	if err := o.db.WithContext(ctx).Model(&models.NotificationEvent{}).
		Where("id = ?", evt.ID).Updates(updates).Error; err != nil {
		utils.LogError("Failed to record delivery for event ID: %d: %v", evt.ID, err)
	}
}

// DispatchAll delivers events in order.
func (o *Outbox) DispatchAll(ctx context.Context, events []*models.NotificationEvent) {
	for _, evt := range events {
		o.Dispatch(ctx, evt)
	}
}

// RelayPending retries up to limit undelivered events, oldest first, and returns
// how many were delivered.
func (o *Outbox) RelayPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	var pending []models.NotificationEvent
	err := o.db.WithContext(ctx).
		Where("delivered_at IS NULL AND attempts < ?", MaxDeliveryAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&pending).Error
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		o.Dispatch(ctx, &pending[i])
		if pending[i].DeliveredAt != nil {
			delivered++
		}
	}
	if len(pending) > 0 {
		utils.LogInfo("Outbox relay - Pending: %d, Delivered: %d", len(pending), delivered)
	}
	return delivered, nil
}

func toNotifyEvent(evt *models.NotificationEvent) notify.Event {
	var p outboxPayload
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			utils.LogError("Malformed payload on event ID: %d: %v", evt.ID, err)
		}
	}
	return notify.Event{
		EventID:    evt.ID,
		RequestID:  evt.RequestID,
		UserID:     evt.UserID,
		Outcome:    evt.Outcome,
		Amount:     p.Amount,
		Method:     p.Method,
		Notes:      p.Notes,
		OccurredAt: evt.CreatedAt,
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
