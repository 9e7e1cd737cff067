package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	MapsBase    string
	MapsKey     string
	GeminiBase  string
	GeminiKey   string
	GeminiModel string
	GoogleRPS   int

	SearchRadiusKm float64
	GeocodeWorkers int
	WarmWorkers    int
	CacheTTL       time.Duration
	SessionTTL     time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/party?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		MapsBase:       env("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com"),
		MapsKey:        env("GOOGLE_MAPS_API_KEY", ""),
		GeminiBase:     env("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiKey:      env("GEMINI_API_KEY", ""),
		GeminiModel:    env("GEMINI_MODEL", "gemini-1.5-flash"),
		GoogleRPS:      atoi("GOOGLE_RPS", 10),
		SearchRadiusKm: atof("SEARCH_RADIUS_KM", 5),
		GeocodeWorkers: atoi("GEOCODE_WORKERS", 4),
		WarmWorkers:    atoi("WARM_WORKERS", 8),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 86400)) * time.Second,
		SessionTTL:     time.Duration(atoi("SPLIT_SESSION_TTL_SECONDS", 3600)) * time.Second,
	}
	if c.MapsKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY is empty; restaurant lookups are disabled")
	}
	if c.GeminiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty; receipt scanning is disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
