package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/services"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type reviewRequest struct {
	Notes string `json:"notes"`
}

type adjustmentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// topupFilterFromQuery reads status, user_id, method, from and to. It writes the
// error response itself and returns false on bad input.
func topupFilterFromQuery(c *gin.Context) (services.TopupFilter, bool) {
	var f services.TopupFilter
	if s := c.Query("status"); s != "" {
		status := models.TopupStatus(strings.ToUpper(s))
		f.Status = &status
	}
	if s := c.Query("method"); s != "" {
		method := models.PaymentMethod(strings.ToUpper(s))
		f.Method = &method
	}
	if s := c.Query("user_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			utils.BadRequest(c, "Invalid user_id", nil)
			return f, false
		}
		userID := uint(id)
		f.UserID = &userID
	}
	if s := c.Query("from"); s != "" {
		from, err := time.Parse(statementDateLayout, s)
		if err != nil {
			utils.BadRequest(c, "Invalid from date, expected YYYY-MM-DD", nil)
			return f, false
		}
		f.CreatedFrom = &from
	}
	if s := c.Query("to"); s != "" {
		to, err := time.Parse(statementDateLayout, s)
		if err != nil {
			utils.BadRequest(c, "Invalid to date, expected YYYY-MM-DD", nil)
			return f, false
		}
		to = to.AddDate(0, 0, 1)
		f.CreatedTo = &to
	}
	return f, true
}

// AdminListTopups lists requests for review with optional filters
func (h *Handler) AdminListTopups(c *gin.Context) {
	utils.LogInfo("AdminListTopups called")
	filter, ok := topupFilterFromQuery(c)
	if !ok {
		return
	}
	pagination := utils.NewPagination(c)
	filter.PageRequest = pageRequest(pagination)

	page, err := h.Topups.List(c.Request.Context(), filter)
	if err != nil {
		utils.LogError("Failed to list top-ups: %v", err)
		respondServiceError(c, err)
		return
	}
	pagination.SetTotal(page.Total)

	views := make([]topupView, 0, len(page.Items))
	for _, item := range page.Items {
		views = append(views, newTopupView(c, item))
	}
	utils.SuccessWithPagination(c, "Top-up requests retrieved", views, pagination)
}

// AdminApproveTopup approves a request and credits the owner's wallet
func (h *Handler) AdminApproveTopup(c *gin.Context) {
	utils.LogInfo("AdminApproveTopup called")
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, utils.ErrInvalidRequest, err.Error())
			return
		}
	}

	topup, err := h.Review.ApproveRequest(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, utils.MsgTopupApproved, gin.H{"topup": newTopupView(c, *topup)})
}

// AdminRejectTopup rejects a request; notes are mandatory
func (h *Handler) AdminRejectTopup(c *gin.Context) {
	utils.LogInfo("AdminRejectTopup called")
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, utils.ErrInvalidRequest, err.Error())
		return
	}

	topup, err := h.Review.RejectRequest(c.Request.Context(), actor, id, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, utils.MsgTopupRejected, gin.H{"topup": newTopupView(c, *topup)})
}

// AdminGetUserWallet shows a user's wallet and ledger
func (h *Handler) AdminGetUserWallet(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	wallet, err := h.Wallets.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if c.Query("entries") == "true" {
		h.respondLedger(c, wallet)
		return
	}
	utils.Success(c, "Wallet retrieved successfully", walletView(locale(c), wallet))
}

// AdminReconcileWallet checks the wallet totals against its ledger
func (h *Handler) AdminReconcileWallet(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	wallet, err := h.Wallets.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	report, err := h.Wallets.Reconcile(c.Request.Context(), wallet.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Wallet is balanced"
	if !report.Balanced {
		message = "Wallet is out of balance"
	}
	utils.Success(c, message, report)
}

// AdminAddFunds credits a user's wallet by hand
func (h *Handler) AdminAddFunds(c *gin.Context) {
	h.adjustWallet(c, true)
}

// AdminDeductFunds debits a user's wallet by hand
func (h *Handler) AdminDeductFunds(c *gin.Context) {
	h.adjustWallet(c, false)
}

func (h *Handler) adjustWallet(c *gin.Context, credit bool) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, utils.ErrInvalidRequest, err.Error())
		return
	}
	amount, ok := toMoney(c, req.Amount)
	if !ok {
		return
	}

	adjust, message := h.Adjustments.DeductFunds, utils.MsgFundsDeducted
	if credit {
		adjust, message = h.Adjustments.AddFunds, utils.MsgFundsAdded
	}
	wallet, entry, err := adjust(c.Request.Context(), actor, userID, amount, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	body := walletView(locale(c), wallet)
	body["entry"] = entry
	utils.Success(c, message, body)
}
