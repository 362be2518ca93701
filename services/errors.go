package services

import (
	"errors"
	"fmt"

	"github.com/Govind-619/WalletDesk/models"
)

// Validation errors. Returned before any state is touched.
var (
	ErrValidation          = errors.New("invalid input")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnsupportedMethod   = errors.New("unsupported payment method")
	ErrNotesRequired       = errors.New("review notes are required")
	ErrDescriptionRequired = errors.New("description is required")
)

// State errors. The caller holds a stale view and should refresh instead of retrying.
var (
	ErrInvalidState     = errors.New("request is not in a valid state for this action")
	ErrAlreadyFinalized = errors.New("request has already been finalized")
	ErrDuplicateEntry   = errors.New("ledger entry already recorded for this reference")
)

// Resource errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrForbidden           = errors.New("forbidden")
)

// ErrConcurrentUpdate means a row changed between read and write. It is an
// infrastructure error: nothing was applied and the boundary may retry.
var ErrConcurrentUpdate = errors.New("concurrent update detected")

// StateError describes a rejected top-up transition.
type StateError struct {
	RequestID uint
	Status    models.TopupStatus
	Event     TopupEvent
	Err       error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("top-up request %d: cannot %s from %s: %v", e.RequestID, e.Event, e.Status, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }
