package utils

// Application constants
const (
	// Application name
	AppName = "WalletDesk"

	// API version
	APIVersion = "v1"

	// Maximum file size for proof uploads (5MB)
	MaxFileSize = 5 * 1024 * 1024

	// Directory holding the daily log files
	LogsDir = "logs"
)

// Public error messages
const (
	ErrUnauthorized   = "Please login for access"
	ErrForbidden      = "Admin access required"
	ErrInvalidRequest = "Invalid request"
	ErrInvalidID      = "Invalid id"
	ErrInternalServer = "Something went wrong, please try again"
	ErrFileTooLarge   = "File size exceeds 5MB limit"
)

// Success messages
const (
	MsgTopupCreated     = "Top-up request created"
	MsgProofUploaded    = "Payment proof uploaded, your request is under review"
	MsgTopupApproved    = "Top-up request approved"
	MsgTopupRejected    = "Top-up request rejected"
	MsgPaymentConfirmed = "Payment confirmation received"
	MsgFundsAdded       = "Funds added to wallet"
	MsgFundsDeducted    = "Funds deducted from wallet"
	MsgUsageCharged     = "Usage charged"
)
