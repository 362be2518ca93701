package controllers

import (
	"github.com/Govind-619/WalletDesk/services"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type chargeRequest struct {
	UserID      uint            `json:"user_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Feature     string          `json:"feature" binding:"required"`
	ReferenceID string          `json:"reference_id" binding:"required"`
}

// ChargeUsage debits a wallet for a paid feature; called by the feature backends
func (h *Handler) ChargeUsage(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, utils.ErrInvalidRequest, err.Error())
		return
	}
	amount, ok := toMoney(c, req.Amount)
	if !ok {
		return
	}

	wallet, entry, err := h.Usage.Charge(c.Request.Context(), services.ChargeInput{
		UserID:      req.UserID,
		Amount:      amount,
		Feature:     req.Feature,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Success(c, utils.MsgUsageCharged, gin.H{
		"entry_id":      entry.ID,
		"balance":       wallet.Balance,
		"balance_after": entry.BalanceAfter,
	})
}
