package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Govind-619/WalletDesk/config"
	"github.com/Govind-619/WalletDesk/controllers"
	"github.com/Govind-619/WalletDesk/jobs"
	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/notify"
	"github.com/Govind-619/WalletDesk/routes"
	"github.com/Govind-619/WalletDesk/services"
	"github.com/Govind-619/WalletDesk/storage"
	"github.com/Govind-619/WalletDesk/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(utils.LogsDir, !cfg.IsProduction()); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer utils.SyncLogger()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	if err := config.InitDB(cfg); err != nil {
		utils.LogError("Failed to initialize database: %v", err)
		log.Fatal("Failed to initialize database:", err)
	}
	db := config.DB

	// Services
	v := validator.New()
	wallets := services.NewWalletStore(db)
	outbox := services.NewOutbox(db, buildNotifier(cfg, db))
	topups := services.NewTopupService(db, wallets, outbox, services.TopupConfig{
		MinAmount: cfg.MinTopupAmount,
		MaxAmount: cfg.MaxTopupAmount,
		Expiry:    cfg.TopupExpiry,
	}, v)

	handler := &controllers.Handler{
		Topups:         topups,
		Review:         services.NewReviewService(db, topups, outbox),
		Adjustments:    services.NewAdjustmentService(db, wallets),
		Usage:          services.NewUsageService(db, wallets, v),
		Wallets:        wallets,
		Proofs:         storage.NewLocalProofStore(cfg.UploadDir, strings.TrimRight(cfg.PublicBaseURL, "/")+"/uploads/proofs"),
		CallbackSecret: cfg.CallbackSecret,
	}

	// Background jobs
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locker, closeLocker := buildLocker(cfg)
	defer closeLocker()
	jobs.NewExpirySweeper(topups, locker, cfg.SweepInterval, cfg.TopupExpiry).Start(ctx)
	jobs.NewOutboxRelay(outbox, cfg.OutboxInterval, cfg.OutboxBatchSize).Start(ctx)

	// Set up router
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(handler, cfg, db),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError("Error starting server: %v", err)
			log.Fatal("Error starting server:", err)
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError("Server forced to shutdown: %v", err)
	}
	utils.LogInfo("Server exited")
}

// buildNotifier logs every event and adds email and Telegram delivery when configured.
func buildNotifier(cfg *config.Config, db *gorm.DB) notify.Notifier {
	notifiers := notify.Multi{notify.LogNotifier{}}

	if cfg.SMTPHost != "" {
		email := notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, notify.GormUserDirectory{DB: db})
		// Users hear about decisions; submissions go to operators.
		notifiers = append(notifiers, notify.Only(email, models.OutcomeApproved, models.OutcomeRejected, models.OutcomeExpired))
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			utils.LogError("Telegram notifier disabled: %v", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	return notifiers
}

// buildLocker guards the expiry sweep in-process and, with Redis configured,
// across replicas.
func buildLocker(cfg *config.Config) (jobs.Locker, func()) {
	local := jobs.NewLocalLocker()
	if cfg.RedisAddr == "" {
		return local, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	utils.LogInfo("Using Redis at %s for job locks", cfg.RedisAddr)
	return jobs.Chain(local, jobs.NewRedisLocker(client, utils.AppName+":")), func() { client.Close() }
}
