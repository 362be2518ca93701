package services

import "github.com/Govind-619/WalletDesk/models"

// TopupEvent drives a TopupRequest from one status to the next.
type TopupEvent string

const (
	EventAttachProof      TopupEvent = "attach_proof"
	EventPaymentConfirmed TopupEvent = "confirm_payment"
	EventApprove          TopupEvent = "approve"
	EventReject           TopupEvent = "reject"
	EventExpire           TopupEvent = "expire"
)

// topupTransitions is the complete set of legal moves. Anything missing is illegal.
var topupTransitions = map[models.TopupStatus]map[TopupEvent]models.TopupStatus{
	models.TopupStatusPending: {
		EventAttachProof:      models.TopupStatusUnderReview,
		EventPaymentConfirmed: models.TopupStatusUnderReview,
		EventApprove:          models.TopupStatusApproved,
		EventReject:           models.TopupStatusRejected,
		EventExpire:           models.TopupStatusExpired,
	},
	models.TopupStatusUnderReview: {
		EventApprove: models.TopupStatusApproved,
		EventReject:  models.TopupStatusRejected,
		EventExpire:  models.TopupStatusExpired,
	},
}

// NextTopupStatus returns the status reached by applying ev to from.
//
// Review events (approve, reject, expire) against a terminal request fail with
// ErrAlreadyFinalized; every other illegal move fails with ErrInvalidState.
func NextTopupStatus(from models.TopupStatus, ev TopupEvent) (models.TopupStatus, error) {
	if next, ok := topupTransitions[from][ev]; ok {
		return next, nil
	}
	if from.IsTerminal() && isReviewEvent(ev) {
		return from, ErrAlreadyFinalized
	}
	return from, ErrInvalidState
}

// CanTransition reports whether ev is legal from the given status.
func CanTransition(from models.TopupStatus, ev TopupEvent) bool {
	_, ok := topupTransitions[from][ev]
	return ok
}

func isReviewEvent(ev TopupEvent) bool {
	return ev == EventApprove || ev == EventReject || ev == EventExpire
}
