package controllers

import (
	"errors"
	"strconv"

	"github.com/Govind-619/WalletDesk/middleware"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/services"
	"github.com/Govind-619/WalletDesk/storage"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// Handler serves every HTTP endpoint.
type Handler struct {
	Topups         *services.TopupService
	Review         *services.ReviewService
	Adjustments    *services.AdjustmentService
	Usage          *services.UsageService
	Wallets        *services.WalletStore
	Proofs         storage.ProofStore
	CallbackSecret string
}

var localeMatcher = language.NewMatcher([]language.Tag{language.Indonesian, language.English})

// locale picks the display language from Accept-Language, defaulting to Indonesian.
func locale(c *gin.Context) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(c.GetHeader("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.Indonesian
	}
	_, idx, _ := localeMatcher.Match(tags...)
	if idx == 1 {
		return language.English
	}
	return language.Indonesian
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		utils.LogError("Actor not found in context")
		utils.Unauthorized(c, utils.ErrUnauthorized)
		return services.Actor{}, false
	}
	return actor, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.LogError("Invalid %s parameter: %s", name, c.Param(name))
		utils.BadRequest(c, utils.ErrInvalidID, nil)
		return 0, false
	}
	return uint(id), true
}

// toMoney converts a decimal request amount, refusing fractional rupiah.
func toMoney(c *gin.Context, d decimal.Decimal) (money.Money, bool) {
	m, err := money.FromDecimal(d)
	if err != nil {
		utils.ValidationError(c, "Invalid amount", err.Error())
		return 0, false
	}
	return m, true
}

// respondServiceError maps a service error onto the HTTP error envelope.
func respondServiceError(c *gin.Context, err error) {
	utils.RespondAppError(c, toAppError(err))
}

func toAppError(err error) *utils.AppError {
	if appErr := utils.GetAppError(err); appErr != nil {
		return appErr
	}
	switch {
	case errors.Is(err, storage.ErrInvalidFile):
		return utils.BadRequestError("Invalid proof file", err)
	case errors.Is(err, services.ErrInvalidAmount):
		return utils.UnprocessableError("Invalid amount", err)
	case errors.Is(err, services.ErrUnsupportedMethod):
		return utils.UnprocessableError("Unsupported payment method", err)
	case errors.Is(err, services.ErrNotesRequired):
		return utils.UnprocessableError("Review notes are required", err)
	case errors.Is(err, services.ErrDescriptionRequired):
		return utils.UnprocessableError("Description is required", err)
	case errors.Is(err, services.ErrValidation):
		return utils.UnprocessableError(utils.ErrInvalidRequest, err)
	case errors.Is(err, services.ErrForbidden):
		return utils.ForbiddenError("You are not allowed to perform this action", err)
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundError("Resource not found", err)
	case errors.Is(err, services.ErrInsufficientBalance):
		return utils.PaymentRequiredError("Insufficient wallet balance", err)
	case errors.Is(err, services.ErrAlreadyFinalized):
		return utils.ConflictError("Request has already been finalized", err)
	case errors.Is(err, services.ErrInvalidState):
		return utils.ConflictError("Request is not in a valid state for this action", err)
	case errors.Is(err, services.ErrDuplicateEntry):
		return utils.ConflictError("Already recorded", err)
	}
	return utils.InternalError(utils.ErrInternalServer, err)
}

func pageRequest(p *utils.Pagination) services.PageRequest {
	return services.PageRequest{Page: p.Page, Limit: p.Limit}
}
