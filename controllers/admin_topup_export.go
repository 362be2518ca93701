package controllers

import (
	"fmt"
	"time"

	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

// AdminExportTopups downloads the filtered requests as an Excel sheet
func (h *Handler) AdminExportTopups(c *gin.Context) {
	utils.LogInfo("AdminExportTopups called")
	filter, ok := topupFilterFromQuery(c)
	if !ok {
		return
	}

	rows, err := h.Topups.Export(c.Request.Context(), filter)
	if err != nil {
		utils.LogError("Failed to load top-ups for export: %v", err)
		respondServiceError(c, err)
		return
	}

	file, err := buildTopupWorkbook(rows)
	if err != nil {
		utils.LogError("Failed to create Excel sheet: %v", err)
		utils.InternalServerError(c, utils.ErrInternalServer)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=topup_requests_%s.xlsx", time.Now().UTC().Format("20060102150405")))
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		utils.InternalServerError(c, utils.ErrInternalServer)
		return
	}
	utils.LogInfo("Exported %d top-up requests", len(rows))
}

func buildTopupWorkbook(rows []models.TopupRequest) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Top-up Requests")
	if err != nil {
		return nil, err
	}

	headers := []string{"Request ID", "User ID", "Amount", "Method", "Status", "Proof", "Review Notes", "Reviewed By", "Reviewed At", "Created At", "Expires At"}
	headerRow := sheet.AddRow()
	style := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	style.Font = *font
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(style)
	}

	var total int64
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(r.ID))
		row.AddCell().SetInt(int(r.UserID))
		row.AddCell().SetInt64(r.Amount.Int64())
		row.AddCell().SetString(string(r.PaymentMethod))
		row.AddCell().SetString(string(r.Status))
		row.AddCell().SetString(r.ProofImageURL)
		row.AddCell().SetString(r.ReviewNotes)
		if r.ReviewedBy != nil {
			row.AddCell().SetInt(int(*r.ReviewedBy))
		} else {
			row.AddCell().SetString("")
		}
		if r.ReviewedAt != nil {
			row.AddCell().SetString(r.ReviewedAt.UTC().Format("2006-01-02 15:04"))
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(r.CreatedAt.UTC().Format("2006-01-02 15:04"))
		row.AddCell().SetString(r.ExpiresAt.UTC().Format("2006-01-02 15:04"))
		if r.Status == models.TopupStatusApproved {
			total += r.Amount.Int64()
		}
	}

	sheet.AddRow()
	summary := sheet.AddRow()
	summary.AddCell().SetString("Approved Total")
	summary.Cells[0].SetStyle(style)
	summary.AddCell().SetInt64(total)
	return file, nil
}
