package models

import (
	"time"

	"github.com/Govind-619/WalletDesk/money"
)

// TopupStatus is the review state of a TopupRequest.
type TopupStatus string

const (
	TopupStatusPending     TopupStatus = "PENDING"
	TopupStatusUnderReview TopupStatus = "UNDER_REVIEW"
	TopupStatusApproved    TopupStatus = "APPROVED"
	TopupStatusRejected    TopupStatus = "REJECTED"
	TopupStatusExpired     TopupStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is allowed.
func (s TopupStatus) IsTerminal() bool {
	switch s {
	case TopupStatusApproved, TopupStatusRejected, TopupStatusExpired:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s TopupStatus) Valid() bool {
	switch s {
	case TopupStatusPending, TopupStatusUnderReview, TopupStatusApproved, TopupStatusRejected, TopupStatusExpired:
		return true
	}
	return false
}

// PaymentMethod is how the user funds a top-up.
type PaymentMethod string

const (
	PaymentMethodQRIS        PaymentMethod = "QRIS"
	PaymentMethodBankBCA     PaymentMethod = "BANK_BCA"
	PaymentMethodBankBRI     PaymentMethod = "BANK_BRI"
	PaymentMethodBankBNI     PaymentMethod = "BANK_BNI"
	PaymentMethodBankMandiri PaymentMethod = "BANK_MANDIRI"
	PaymentMethodGoPay       PaymentMethod = "EWALLET_GOPAY"
	PaymentMethodOVO         PaymentMethod = "EWALLET_OVO"
	PaymentMethodDANA        PaymentMethod = "EWALLET_DANA"
	PaymentMethodAutomatic   PaymentMethod = "AUTOMATIC"
)

// PaymentMethods lists every supported method.
var PaymentMethods = []PaymentMethod{
	PaymentMethodQRIS,
	PaymentMethodBankBCA,
	PaymentMethodBankBRI,
	PaymentMethodBankBNI,
	PaymentMethodBankMandiri,
	PaymentMethodGoPay,
	PaymentMethodOVO,
	PaymentMethodDANA,
	PaymentMethodAutomatic,
}

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// IsManual reports whether the method needs an uploaded proof and a human review.
func (m PaymentMethod) IsManual() bool {
	return m != PaymentMethodAutomatic
}

// TopupRequest tracks a user's request to fund their wallet.
type TopupRequest struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	UserID        uint          `gorm:"index;not null" json:"user_id"`
	Amount        money.Money   `gorm:"not null;check:chk_topup_requests_amount,amount > 0" json:"amount"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(32);not null" json:"payment_method"`
	ProofImageURL string        `json:"proof_image_url,omitempty"`
	Status        TopupStatus   `gorm:"type:varchar(16);index;not null;default:'PENDING'" json:"status"`
	ReviewNotes   string        `json:"review_notes,omitempty"`
	ReviewedBy    *uint         `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time    `json:"reviewed_at,omitempty"`
	ExpiresAt     time.Time     `gorm:"index" json:"expires_at"`
	CreatedAt     time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
