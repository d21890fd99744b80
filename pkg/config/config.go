package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the strategy core.
type Config struct {
	Port string

	// Universe
	Symbols []string

	// Profiles
	ProfilePath string // yaml file; empty means built-in defaults
	ProfileName string

	// Mock feed
	FeedTicksPerSec float64
	FeedStartPrice  float64
	FeedStep        float64

	// Paper execution
	InitialBalance float64
	FeeRate        float64 // decimal (e.g. 0.001 = 10 bps)
	SlippageBps    float64
	LatencyMinMs   int
	LatencyMaxMs   int
	RejectRate     float64

	// Database
	DBPath string

	// Monitoring
	MaxDrawdownAlert float64

	// Auth
	JWTSecret   string
	OperatorKey string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		Symbols:          splitAndTrim(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT")),
		ProfilePath:      getEnv("PROFILE_PATH", ""),
		ProfileName:      getEnv("PROFILE_NAME", "meanrev-baseline"),
		FeedTicksPerSec:  getEnvFloat("FEED_TICKS_PER_SEC", 4),
		FeedStartPrice:   getEnvFloat("FEED_START_PRICE", 100),
		FeedStep:         getEnvFloat("FEED_STEP", 0.8),
		InitialBalance:   getEnvFloat("INITIAL_BALANCE", 10000.0),
		FeeRate:          getEnvFloat("FEE_RATE", 0.001),
		SlippageBps:      getEnvFloat("SLIPPAGE_BPS", 2),
		LatencyMinMs:     getEnvInt("GATEWAY_LATENCY_MIN_MS", 0),
		LatencyMaxMs:     getEnvInt("GATEWAY_LATENCY_MAX_MS", 0),
		RejectRate:       getEnvFloat("REJECT_RATE", 0),
		DBPath:           getEnv("DB_PATH", "./data/strategy.db"),
		MaxDrawdownAlert: getEnvFloat("MAX_DRAWDOWN_ALERT", 0),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret"),
		OperatorKey:      getEnv("OPERATOR_KEY", "dev-operator"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
