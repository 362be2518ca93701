package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/Govind-619/WalletDesk/money"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Env  string
	Port string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	JWTSecret      string
	InternalAPIKey string
	CallbackSecret string

	MinTopupAmount  money.Money
	MaxTopupAmount  money.Money
	TopupExpiry     time.Duration
	SweepInterval   time.Duration
	OutboxInterval  time.Duration
	OutboxBatchSize int

	UploadDir     string
	PublicBaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	TelegramBotToken string
	TelegramChatID   int64

	RedisAddr     string
	RedisPassword string
}

// LoadConfig loads configuration from the environment. A .env file is read when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	cfg := &Config{
		Env:              getEnv("ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DBDriver:         getEnv("DB_DRIVER", "postgres"),
		DBHost:           os.Getenv("DB_HOST"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           os.Getenv("DB_NAME"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		DBPath:           getEnv("DB_PATH", "walletdesk.db"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		InternalAPIKey:   os.Getenv("INTERNAL_API_KEY"),
		CallbackSecret:   os.Getenv("PAYMENT_CALLBACK_SECRET"),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads/proofs"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:         os.Getenv("SMTP_FROM"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.MinTopupAmount, err = getMoney("TOPUP_MIN_AMOUNT", money.New(10000)); err != nil {
		return nil, err
	}
	if cfg.MaxTopupAmount, err = getMoney("TOPUP_MAX_AMOUNT", money.Zero); err != nil {
		return nil, err
	}
	if cfg.TopupExpiry, err = getDuration("TOPUP_EXPIRY", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("EXPIRY_SWEEP_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.OutboxInterval, err = getDuration("OUTBOX_RELAY_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.OutboxBatchSize, err = getInt("OUTBOX_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %v", err)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.MaxTopupAmount.IsPositive() && cfg.MaxTopupAmount < cfg.MinTopupAmount {
		return nil, errors.New("TOPUP_MAX_AMOUNT must not be below TOPUP_MIN_AMOUNT")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool { return c.Env == "production" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, nil
}

func getMoney(key string, fallback money.Money) (money.Money, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := money.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	if v.IsNegative() {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return v, nil
}
