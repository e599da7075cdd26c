package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort      string
	ShutdownTimeout time.Duration
	LogLevel        string

	// API認証(空文字列の場合は認証なしのオープンモード)
	APIKey string

	// Garmin upstream
	GarminSSOURL    string
	GarminAPIURL    string
	GarminEmail     string
	GarminPassword  string
	UpstreamTimeout time.Duration

	// トークン保管場所(空文字列の場合はデフォルト解決に委ねる)
	TokenStorePath  string
	OAuth1TokenJSON string
	OAuth2TokenJSON string
	TokensBlobJSON  string

	// Rate Limit
	RateLimitRPS   int
	RateLimitBurst int

	// Worker
	TokenRefreshSchedule string
}

// Load は環境変数からConfigを読み込む。
// 対で設定すべき環境変数が片方だけ設定されている場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.GarminEmail = os.Getenv("GARMIN_EMAIL")
	cfg.GarminPassword = os.Getenv("GARMIN_PASSWORD")
	cfg.OAuth1TokenJSON = os.Getenv("OAUTH1_TOKEN_JSON")
	cfg.OAuth2TokenJSON = os.Getenv("OAUTH2_TOKEN_JSON")

	var invalid []string

	if (cfg.GarminEmail == "") != (cfg.GarminPassword == "") {
		invalid = append(invalid, "GARMIN_EMAIL/GARMIN_PASSWORD must be set together")
	}
	if (cfg.OAuth1TokenJSON == "") != (cfg.OAuth2TokenJSON == "") {
		invalid = append(invalid, "OAUTH1_TOKEN_JSON/OAUTH2_TOKEN_JSON must be set together")
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment configuration: %v", invalid)
	}

	cfg.APIKey = os.Getenv("API_KEY")
	cfg.TokenStorePath = os.Getenv("GARMINTOKENS")
	cfg.TokensBlobJSON = os.Getenv("GARMIN_TOKENS_JSON")

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8000")
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.GarminSSOURL = getEnvString("GARMIN_SSO_URL", "https://sso.garmin.com")
	cfg.GarminAPIURL = getEnvString("GARMIN_API_URL", "https://connectapi.garmin.com")
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second)
	cfg.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 20)
	cfg.TokenRefreshSchedule = getEnvString("TOKEN_REFRESH_SCHEDULE", "0 3 * * *")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
