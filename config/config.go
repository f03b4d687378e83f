package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API      APIConfig
	Telegram TelegramConfig
	Board    BoardConfig
	Admin    AdminConfig
	Redis    RedisConfig
	Report   ReportConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables the limiter
	RateBurst int
}

type TelegramConfig struct {
	Token       string
	DefaultLang string
}

type BoardConfig struct {
	PollInterval time.Duration
}

type AdminConfig struct {
	PIN string // local UI gate only, not a security boundary
}

type RedisConfig struct {
	Addr       string // empty disables the catalog cache
	Password   string
	DB         int
	CatalogTTL time.Duration
}

type ReportConfig struct {
	Cron     string // e.g. "0 23 * * *"; empty disables the digest
	ChatIDs  []int64
	Username string
	Password string
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

type MetricsConfig struct {
	Addr string // empty disables the ops server
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	rateLimit, _ := strconv.ParseFloat(getEnv("API_RATE_LIMIT", "20"), 64)
	rateBurst, _ := strconv.Atoi(getEnv("API_RATE_BURST", "10"))

	return &Config{
		API: APIConfig{
			BaseURL:   getEnv("API_BASE_URL", "https://apollo45.pythonanywhere.com/api/"),
			Timeout:   getDuration("API_TIMEOUT", 10*time.Second),
			RateLimit: rateLimit,
			RateBurst: rateBurst,
		},
		Telegram: TelegramConfig{
			Token:       getEnv("TOKEN", ""),
			DefaultLang: getEnv("DEFAULT_LANG", "tr"),
		},
		Board: BoardConfig{
			PollInterval: getDuration("POLL_INTERVAL", 3*time.Second),
		},
		Admin: AdminConfig{
			PIN: getEnv("ADMIN_PIN", "1881"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         redisDB,
			CatalogTTL: getDuration("CATALOG_TTL", time.Minute),
		},
		Report: ReportConfig{
			Cron:     getEnv("REPORT_CRON", ""),
			ChatIDs:  parseChatIDs(getEnv("REPORT_CHAT_IDS", "")),
			Username: getEnv("REPORT_USERNAME", ""),
			Password: getEnv("REPORT_PASSWORD", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// parseChatIDs reads a comma separated list; malformed entries are skipped.
func parseChatIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
