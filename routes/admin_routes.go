package routes

import (
	"github.com/Govind-619/WalletDesk/controllers"
	"github.com/Govind-619/WalletDesk/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// initAdminRoutes initializes the review and wallet administration routes
func initAdminRoutes(router *gin.RouterGroup, h *controllers.Handler, secret string, db *gorm.DB) {
	admin := router.Group("/admin", middleware.AuthMiddleware(secret, db), middleware.AdminMiddleware())
	{
		topups := admin.Group("/topups")
		{
			topups.GET("", h.AdminListTopups)
			topups.GET("/export", h.AdminExportTopups)
			topups.POST("/:id/approve", h.AdminApproveTopup)
			topups.POST("/:id/reject", h.AdminRejectTopup)
		}

		wallets := admin.Group("/wallets")
		{
			wallets.GET("/:userId", h.AdminGetUserWallet)
			wallets.GET("/:userId/reconcile", h.AdminReconcileWallet)
			wallets.POST("/:userId/add", h.AdminAddFunds)
			wallets.POST("/:userId/deduct", h.AdminDeductFunds)
		}
	}
}
