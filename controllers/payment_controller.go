package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/services"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
)

// CallbackSignatureHeader carries hex(HMAC-SHA256(secret, body)).
const CallbackSignatureHeader = "X-Callback-Signature"

type paymentCallback struct {
	RequestID uint   `json:"request_id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

// SignCallback computes the signature the provider sends with a callback body.
func SignCallback(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// AutomaticPaymentCallback receives payment confirmations from the provider
func (h *Handler) AutomaticPaymentCallback(c *gin.Context) {
	utils.LogInfo("AutomaticPaymentCallback called")

	body, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, utils.ErrInvalidRequest, nil)
		return
	}

	given := strings.ToLower(strings.TrimSpace(c.GetHeader(CallbackSignatureHeader)))
	expected := SignCallback(h.CallbackSecret, body)
	if h.CallbackSecret == "" || !hmac.Equal([]byte(given), []byte(expected)) {
		utils.LogError("Payment callback signature verification failed from %s", c.ClientIP())
		utils.Unauthorized(c, "Invalid signature")
		return
	}

	var cb paymentCallback
	if err := json.Unmarshal(body, &cb); err != nil || cb.RequestID == 0 {
		utils.LogError("Malformed payment callback: %s", string(body))
		utils.BadRequest(c, utils.ErrInvalidRequest, nil)
		return
	}
	utils.LogDebug("Payment callback - Request ID: %d, Status: %s, Reference: %s", cb.RequestID, cb.Status, cb.Reference)

	if !strings.EqualFold(cb.Status, "PAID") {
		utils.LogInfo("Ignoring payment callback for request ID: %d with status %s", cb.RequestID, cb.Status)
		utils.Success(c, "Callback acknowledged", nil)
		return
	}

	topup, err := h.Topups.OnPaymentConfirmed(c.Request.Context(), cb.RequestID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidState) || errors.Is(err, services.ErrAlreadyFinalized) {
			// Providers retry until they get a 2xx.
			if current, getErr := h.Topups.Get(c.Request.Context(), cb.RequestID); getErr == nil &&
				current.PaymentMethod == models.PaymentMethodAutomatic &&
				current.Status != models.TopupStatusPending {
				utils.Success(c, "Callback already processed", gin.H{"status": current.Status})
				return
			}
		}
		utils.LogError("Failed to confirm payment for request ID: %d: %v", cb.RequestID, err)
		respondServiceError(c, err)
		return
	}

	utils.Success(c, utils.MsgPaymentConfirmed, gin.H{"request_id": topup.ID, "status": topup.Status})
}
