package controllers

import (
	"context"
	"strings"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/services"
	"github.com/Govind-619/WalletDesk/storage"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createTopupRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
}

// topupView is a request as shown to clients.
type topupView struct {
	models.TopupRequest
	AmountDisplay string `json:"amount_display"`
}

func newTopupView(c *gin.Context, r models.TopupRequest) topupView {
	return topupView{TopupRequest: r, AmountDisplay: r.Amount.Format(locale(c))}
}

// CreateTopup opens a new top-up request for the caller
func (h *Handler) CreateTopup(c *gin.Context) {
	utils.LogInfo("CreateTopup called")
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req createTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid top-up request body for user ID: %d: %v", actor.ID, err)
		utils.BadRequest(c, "Invalid request. Amount and payment_method are required", err.Error())
		return
	}
	amount, ok := toMoney(c, req.Amount)
	if !ok {
		return
	}

	topup, err := h.Topups.Create(c.Request.Context(), services.CreateTopupInput{
		UserID: actor.ID,
		Amount: amount,
		Method: models.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
	})
	if err != nil {
		utils.LogError("Failed to create top-up for user ID: %d: %v", actor.ID, err)
		respondServiceError(c, err)
		return
	}

	utils.Created(c, utils.MsgTopupCreated, gin.H{
		"topup":          newTopupView(c, *topup),
		"requires_proof": topup.PaymentMethod.IsManual(),
	})
}

// ListMyTopups returns the caller's own requests, newest first
func (h *Handler) ListMyTopups(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	pagination := utils.NewPagination(c)
	filter := services.TopupFilter{
		UserID:      &actor.ID,
		PageRequest: pageRequest(pagination),
	}
	if s := c.Query("status"); s != "" {
		status := models.TopupStatus(strings.ToUpper(s))
		filter.Status = &status
	}

	page, err := h.Topups.List(c.Request.Context(), filter)
	if err != nil {
		utils.LogError("Failed to list top-ups for user ID: %d: %v", actor.ID, err)
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

// UploadTopupProof stores the uploaded proof and moves the request to review
func (h *Handler) UploadTopupProof(c *gin.Context) {
	utils.LogInfo("UploadTopupProof called")
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Validate before storing the file.
	topup, err := h.Topups.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if topup.UserID != actor.ID {
		respondServiceError(c, services.ErrForbidden)
		return
	}
	if !topup.PaymentMethod.IsManual() || !services.CanTransition(topup.Status, services.EventAttachProof) {
		respondServiceError(c, services.ErrInvalidState)
		return
	}

	file, err := c.FormFile("proof")
	if err != nil {
		utils.LogError("Missing proof file for request ID: %d: %v", id, err)
		utils.BadRequest(c, "Proof file is required", err.Error())
		return
	}
	if file.Size > storage.MaxProofSize {
		utils.BadRequest(c, utils.ErrFileTooLarge, nil)
		return
	}

	ref, err := h.Proofs.Save(c.Request.Context(), file)
	if err != nil {
		utils.LogError("Failed to save proof for request ID: %d: %v", id, err)
		respondServiceError(c, err)
		return
	}

	updated, err := h.Topups.AttachProof(c.Request.Context(), actor, id, ref)
	if err != nil {
		utils.LogError("Failed to attach proof to request ID: %d: %v", id, err)
		if delErr := h.Proofs.Delete(context.WithoutCancel(c.Request.Context()), ref); delErr != nil {
			utils.LogError("Failed to remove unattached proof %s: %v", ref, delErr)
		}
		respondServiceError(c, err)
		return
	}

	utils.Success(c, utils.MsgProofUploaded, gin.H{"topup": newTopupView(c, *updated)})
}
