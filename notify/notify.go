// Package notify delivers top-up outcome events to users and operators.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/utils"
)

// Event is what happened to one top-up request.
type Event struct {
	EventID    uint                       `json:"event_id"`
	RequestID  uint                       `json:"request_id"`
	UserID     uint                       `json:"user_id"`
	Outcome    models.NotificationOutcome `json:"outcome"`
	Amount     money.Money                `json:"amount"`
	Method     models.PaymentMethod       `json:"method"`
	Notes      string                     `json:"notes,omitempty"`
	OccurredAt time.Time                  `json:"occurred_at"`
}

// Summary is a one-line human description of the event.
func (e Event) Summary() string {
	switch e.Outcome {
	case models.OutcomeSubmitted:
		return fmt.Sprintf("Top-up #%d of %s via %s is waiting for review", e.RequestID, e.Amount, e.Method)
	case models.OutcomeApproved:
		return fmt.Sprintf("Top-up #%d of %s has been approved", e.RequestID, e.Amount)
	case models.OutcomeRejected:
		return fmt.Sprintf("Top-up #%d of %s was rejected: %s", e.RequestID, e.Amount, e.Notes)
	case models.OutcomeExpired:
		return fmt.Sprintf("Top-up #%d of %s expired before it was reviewed", e.RequestID, e.Amount)
	}
	return fmt.Sprintf("Top-up #%d: %s", e.RequestID, e.Outcome)
}

// Notifier delivers an event. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// LogNotifier writes events to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, evt Event) error {
	utils.LogInfo("Notification - Request ID: %d, User ID: %d, Outcome: %s, Amount: %d",
		evt.RequestID, evt.UserID, evt.Outcome, evt.Amount)
	return nil
}

// Multi fans an event out to every notifier. All notifiers are attempted; the
// joined error is returned if any failed.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, evt Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Only forwards events with one of the given outcomes.
func Only(next Notifier, outcomes ...models.NotificationOutcome) Notifier {
	return filtered{next: next, outcomes: outcomes}
}

type filtered struct {
	next     Notifier
	outcomes []models.NotificationOutcome
}

func (f filtered) Notify(ctx context.Context, evt Event) error {
	for _, o := range f.outcomes {
		if o == evt.Outcome {
			return f.next.Notify(ctx, evt)
		}
	}
	return nil
}
