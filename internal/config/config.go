package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"leave-ledger/internal/models"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr string
	LogLevel string
	LogJSON  bool

	DBDriver    string
	DatabaseURL string

	TelegramToken   string
	BaseAdminChatID int64
	DefaultLocale   string

	KafkaBrokers []string
	KafkaTopic   string

	RedisAddr       string
	BalanceCacheTTL time.Duration

	CasbinPolicyFile string
	WeekendsFile     string

	ReserveMaxRetries  int
	LeaveApprovalSteps int
	NotifyBuffer       int
	NotifyTimeout      time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	DefaultEntitlements models.Entitlements
}

var instance *Config
var once sync.Once

// GetConfig loads the process configuration once and exits on invalid input.
func GetConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			logrus.Infof("no .env file loaded: %s", err.Error())
		}

		cfg, err := Load()
		if err != nil {
			logrus.Fatalf("invalid configuration: %s", err.Error())
		}
		instance = cfg
	})

	return instance
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnv("LOG_FORMAT", "text") == "json",

		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL: getEnv("DATABASE_URL", "leave.db"),

		TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		BaseAdminChatID: getEnvAsInt("BASE_ADMIN_CHAT_ID", 0),
		DefaultLocale:   getEnv("DEFAULT_LOCALE", "en"),

		KafkaBrokers: getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "leave.events"),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		BalanceCacheTTL: getEnvAsDuration("BALANCE_CACHE_TTL", time.Minute),

		CasbinPolicyFile: getEnv("CASBIN_POLICY_FILE", ""),
		WeekendsFile:     getEnv("WEEKENDS_FILE", ""),

		ReserveMaxRetries:  int(getEnvAsInt("RESERVE_MAX_RETRIES", 5)),
		LeaveApprovalSteps: int(getEnvAsInt("LEAVE_APPROVAL_STEPS", 1)),
		NotifyBuffer:       int(getEnvAsInt("NOTIFY_BUFFER", 256)),
		NotifyTimeout:      getEnvAsDuration("NOTIFY_TIMEOUT", 5*time.Second),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: int(getEnvAsInt("RATE_LIMIT_BURST", 40)),
		CORSOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS"),

		DefaultEntitlements: models.Entitlements{
			SickPaid:      int(getEnvAsInt("DEFAULT_SICK_PAID_DAYS", 10)),
			SickUnpaid:    int(getEnvAsInt("DEFAULT_SICK_UNPAID_DAYS", 0)),
			CasualPaid:    int(getEnvAsInt("DEFAULT_CASUAL_PAID_DAYS", 12)),
			CasualUnpaid:  int(getEnvAsInt("DEFAULT_CASUAL_UNPAID_DAYS", 0)),
			Bereavement:   int(getEnvAsInt("DEFAULT_BEREAVEMENT_DAYS", 3)),
			PublicHoliday: int(getEnvAsInt("DEFAULT_PUBLIC_HOLIDAY_DAYS", 0)),
			UnpaidLeave:   int(getEnvAsInt("DEFAULT_UNPAID_LEAVE_DAYS", 0)),
		},
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.ReserveMaxRetries < 1 {
		return nil, errors.New("RESERVE_MAX_RETRIES must be at least 1")
	}
	if cfg.LeaveApprovalSteps < 1 {
		return nil, errors.New("LEAVE_APPROVAL_STEPS must be at least 1")
	}
	if err := cfg.DefaultEntitlements.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewLogger builds the root logger every component derives from.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if c.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseFloat(valStr, 64); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsList(name string) []string {
	valStr := getEnv(name, "")
	if valStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
