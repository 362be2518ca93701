package controllers

import (
	"fmt"
	"time"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/language"
)

const statementDateLayout = "2006-01-02"

type ledgerEntryView struct {
	models.LedgerEntry
	AmountDisplay       string `json:"amount_display"`
	BalanceAfterDisplay string `json:"balance_after_display"`
}

func walletView(tag language.Tag, w *models.Wallet) gin.H {
	return gin.H{
		"wallet":                  w,
		"balance_display":         w.Balance.Format(tag),
		"total_deposited_display": w.TotalDeposited.Format(tag),
		"total_spent_display":     w.TotalSpent.Format(tag),
	}
}

// GetWallet returns the caller's wallet, creating it on first access
func (h *Handler) GetWallet(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	wallet, err := h.Wallets.GetOrCreate(c.Request.Context(), actor.ID)
	if err != nil {
		utils.LogError("Failed to get wallet for user ID: %d: %v", actor.ID, err)
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "Wallet retrieved successfully", walletView(locale(c), wallet))
}

// GetWalletTransactions returns the caller's ledger, newest first
func (h *Handler) GetWalletTransactions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	wallet, err := h.Wallets.GetOrCreate(c.Request.Context(), actor.ID)
	if err != nil {
		utils.LogError("Failed to get wallet for user ID: %d: %v", actor.ID, err)
		respondServiceError(c, err)
		return
	}
	h.respondLedger(c, wallet)
}

func (h *Handler) respondLedger(c *gin.Context, wallet *models.Wallet) {
	pagination := utils.NewPagination(c)
	page, err := h.Wallets.ListEntries(c.Request.Context(), wallet.ID, pageRequest(pagination))
	if err != nil {
		utils.LogError("Failed to list ledger for wallet ID: %d: %v", wallet.ID, err)
		respondServiceError(c, err)
		return
	}
	pagination.SetTotal(page.Total)

	tag := locale(c)
	views := make([]ledgerEntryView, 0, len(page.Items))
	for _, e := range page.Items {
		views = append(views, ledgerEntryView{
			LedgerEntry:         e,
			AmountDisplay:       e.Amount.Format(tag),
			BalanceAfterDisplay: e.BalanceAfter.Format(tag),
		})
	}
	utils.SuccessWithPagination(c, "Wallet transactions retrieved successfully", views, pagination)
}

// DownloadWalletStatement renders the caller's ledger for a date range as a PDF.
// The range defaults to the last 30 days; "to" is inclusive.
func (h *Handler) DownloadWalletStatement(c *gin.Context) {
	utils.LogInfo("DownloadWalletStatement called")
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	from, to := today.AddDate(0, 0, -30), today
	var err error
	if s := c.Query("from"); s != "" {
		if from, err = time.Parse(statementDateLayout, s); err != nil {
			utils.BadRequest(c, "Invalid from date, expected YYYY-MM-DD", nil)
			return
		}
	}
	if s := c.Query("to"); s != "" {
		if to, err = time.Parse(statementDateLayout, s); err != nil {
			utils.BadRequest(c, "Invalid to date, expected YYYY-MM-DD", nil)
			return
		}
	}
	if to.Before(from) {
		utils.BadRequest(c, "from must not be after to", nil)
		return
	}

	wallet, err := h.Wallets.GetOrCreate(c.Request.Context(), actor.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	entries, err := h.Wallets.EntriesBetween(c.Request.Context(), wallet.ID, from, to.AddDate(0, 0, 1))
	if err != nil {
		utils.LogError("Failed to load statement entries for wallet ID: %d: %v", wallet.ID, err)
		respondServiceError(c, err)
		return
	}

	pdf := buildStatementPDF(locale(c), wallet, entries, from, to)
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=wallet_statement_%s_%s.pdf",
		from.Format(statementDateLayout), to.Format(statementDateLayout)))
	if err := pdf.Output(c.Writer); err != nil {
		utils.LogError("Failed to write PDF file: %v", err)
		utils.InternalServerError(c, utils.ErrInternalServer)
		return
	}
	utils.LogInfo("Generated wallet statement for user ID: %d with %d entries", actor.ID, len(entries))
}

func buildStatementPDF(tag language.Tag, wallet *models.Wallet, entries []models.LedgerEntry, from, to time.Time) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, utils.AppName+" - Wallet Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Wallet #%d | User #%d", wallet.ID, wallet.UserID))
	pdf.Ln(6)
	pdf.Cell(0, 8, "Period: "+from.Format(statementDateLayout)+" to "+to.Format(statementDateLayout))
	pdf.Ln(10)

	headers := []string{"Date", "Type", "Reference", "Amount", "Balance"}
	colWidths := []float64{38, 48, 40, 32, 32}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i, e := range entries {
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(colWidths[0], 8, e.CreatedAt.UTC().Format("2006-01-02 15:04"), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[1], 8, string(e.Kind), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[2], 8, e.ReferenceID, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[3], 8, e.Amount.Format(tag), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(colWidths[4], 8, e.BalanceAfter.Format(tag), "1", 0, "R", fill, 0, "")
		pdf.Ln(-1)
	}
	if len(entries) == 0 {
		pdf.CellFormat(190, 8, "No transactions in this period", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(60, 8, "Current Balance", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, wallet.Balance.Format(tag), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(60, 8, "Total Deposited", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, wallet.TotalDeposited.Format(tag), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(60, 8, "Total Spent", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, wallet.TotalSpent.Format(tag), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	return pdf
}
