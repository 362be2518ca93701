package routes

import (
	"github.com/Govind-619/WalletDesk/controllers"
	"github.com/Govind-619/WalletDesk/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// initUserRoutes initializes all user-facing wallet routes
func initUserRoutes(router *gin.RouterGroup, h *controllers.Handler, secret string, db *gorm.DB) {
	user := router.Group("/user", middleware.AuthMiddleware(secret, db))
	{
		topups := user.Group("/topups")
		{
			topups.POST("", h.CreateTopup)
			topups.GET("", h.ListMyTopups)
			topups.POST("/:id/proof", h.UploadTopupProof)
		}

		wallet := user.Group("/wallet")
		{
			wallet.GET("", h.GetWallet)
			wallet.GET("/transactions", h.GetWalletTransactions)
			wallet.GET("/statement", h.DownloadWalletStatement)
		}
	}
}
