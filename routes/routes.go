package routes

import (
	"net/http"

	"github.com/Govind-619/WalletDesk/config"
	"github.com/Govind-619/WalletDesk/controllers"
	"github.com/Govind-619/WalletDesk/middleware"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(h *controllers.Handler, cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = utils.MaxFileSize

	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": utils.APIVersion})
	})
	if cfg.UploadDir != "" {
		router.Static("/uploads/proofs", cfg.UploadDir)
	}

	api := router.Group("/v1")
	{
		initUserRoutes(api, h, cfg.JWTSecret, db)
		initAdminRoutes(api, h, cfg.JWTSecret, db)

		// Server-to-server endpoints authenticate with a signature or shared key.
		api.POST("/payments/automatic/callback", h.AutomaticPaymentCallback)
		internal := api.Group("/internal", middleware.InternalKeyMiddleware(cfg.InternalAPIKey))
		{
			internal.POST("/usage/charge", h.ChargeUsage)
		}
	}

	return router
}
