package services

import (
	"testing"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/stretchr/testify/assert"
)

func TestNextTopupStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    models.TopupStatus
		event   TopupEvent
		want    models.TopupStatus
		wantErr error
	}{
		{"attach proof", models.TopupStatusPending, EventAttachProof, models.TopupStatusUnderReview, nil},
		{"payment confirmed", models.TopupStatusPending, EventPaymentConfirmed, models.TopupStatusUnderReview, nil},
		{"approve pending", models.TopupStatusPending, EventApprove, models.TopupStatusApproved, nil},
		{"approve under review", models.TopupStatusUnderReview, EventApprove, models.TopupStatusApproved, nil},
		{"reject under review", models.TopupStatusUnderReview, EventReject, models.TopupStatusRejected, nil},
		{"expire pending", models.TopupStatusPending, EventExpire, models.TopupStatusExpired, nil},
		{"expire under review", models.TopupStatusUnderReview, EventExpire, models.TopupStatusExpired, nil},
		{"attach twice", models.TopupStatusUnderReview, EventAttachProof, models.TopupStatusUnderReview, ErrInvalidState},
		{"confirm under review", models.TopupStatusUnderReview, EventPaymentConfirmed, models.TopupStatusUnderReview, ErrInvalidState},
		{"attach after approval", models.TopupStatusApproved, EventAttachProof, models.TopupStatusApproved, ErrInvalidState},
		{"approve approved", models.TopupStatusApproved, EventApprove, models.TopupStatusApproved, ErrAlreadyFinalized},
		{"reject approved", models.TopupStatusApproved, EventReject, models.TopupStatusApproved, ErrAlreadyFinalized},
		{"approve rejected", models.TopupStatusRejected, EventApprove, models.TopupStatusRejected, ErrAlreadyFinalized},
		{"expire expired", models.TopupStatusExpired, EventExpire, models.TopupStatusExpired, ErrAlreadyFinalized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextTopupStatus(tt.from, tt.event)
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, CanTransition(tt.from, tt.event))
				return
			}
			assert.NoError(t, err)
			assert.True(t, CanTransition(tt.from, tt.event))
		})
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	events := []TopupEvent{EventAttachProof, EventPaymentConfirmed, EventApprove, EventReject, EventExpire}
	for _, s := range []models.TopupStatus{models.TopupStatusApproved, models.TopupStatusRejected, models.TopupStatusExpired} {
		assert.True(t, s.IsTerminal())
		for _, ev := range events {
			assert.False(t, CanTransition(s, ev), "%s on %s", ev, s)
		}
	}
}
