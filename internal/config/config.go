// Package config загружает конфигурацию бота из переменных окружения.
// Сначала подхватывается .env (если он есть), затем envconfig маппит
// переменные окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Config содержит все настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS"`
	AdminIDs         []int64 `envconfig:"-"`
	// Групповой чат экономики: сюда уходят сообщения тиков (налоги, конкурс).
	EconomyChatID int64 `envconfig:"ECONOMY_CHAT_ID"`

	// --- Store ---
	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	StoreDir     string `envconfig:"STORE_DIR" default:"data"`

	// --- Database (STORE_BACKEND=postgres) ---
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"economy_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9100"`

	// --- Bot runtime ---
	BotMaxInflight          int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	AdminSessionTTL   time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`

	// --- Economy ---
	EconomyStartingCash int64 `envconfig:"ECONOMY_STARTING_CASH" default:"1000"`

	// --- Tax ---
	TaxRewardThreshold int64   `envconfig:"TAX_REWARD_THRESHOLD" default:"20000"`
	TaxRewardRate      float64 `envconfig:"TAX_REWARD_RATE" default:"0.18"`

	// --- Casino ---
	BlackjackTimeout time.Duration `envconfig:"BLACKJACK_TIMEOUT" default:"60s"`

	// --- Work ---
	WorkSessionIdleTTL time.Duration `envconfig:"WORK_SESSION_IDLE_TTL" default:"2h"`
	WorkFaultCooldown  time.Duration `envconfig:"WORK_FAULT_COOLDOWN" default:"60s"`

	// --- Loans ---
	LoanMaxDoublings int `envconfig:"LOAN_MAX_DOUBLINGS" default:"3"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"20"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureCasinoEnabled    bool `envconfig:"FEATURE_CASINO_ENABLED" default:"true"`
	FeatureWorkEnabled      bool `envconfig:"FEATURE_WORK_ENABLED" default:"true"`
	FeatureLoansEnabled     bool `envconfig:"FEATURE_LOANS_ENABLED" default:"true"`
	FeatureBusinessEnabled  bool `envconfig:"FEATURE_BUSINESS_ENABLED" default:"true"`
	FeatureWealthTaxEnabled bool `envconfig:"FEATURE_WEALTH_TAX_ENABLED" default:"false"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли пользователь в ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Location возвращает часовой пояс приложения.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// Validate проверяет общие настройки (без токена бота).
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "file":
		if c.StoreDir == "" {
			return fmt.Errorf("STORE_DIR не задан")
		}
	case "postgres":
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для STORE_BACKEND=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	default:
		return fmt.Errorf("неизвестный STORE_BACKEND %q (file|postgres)", c.StoreBackend)
	}
	if c.EconomyStartingCash < 0 {
		return fmt.Errorf("ECONOMY_STARTING_CASH должен быть >= 0")
	}
	if c.TaxRewardRate < 0 || c.TaxRewardRate >= 1 {
		return fmt.Errorf("TAX_REWARD_RATE должен быть в [0, 1)")
	}
	if c.BlackjackTimeout <= 0 {
		return fmt.Errorf("BLACKJACK_TIMEOUT должен быть > 0")
	}
	if c.LoanMaxDoublings < 0 {
		return fmt.Errorf("LOAN_MAX_DOUBLINGS должен быть >= 0")
	}
	return nil
}

// ValidateBot проверяет настройки, нужные только процессу бота.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не задан")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает .env и переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug(".env не найден, используем только окружение")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
