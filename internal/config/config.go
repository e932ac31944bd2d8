// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Shopify App
	ShopifyAPIKey     string
	ShopifyAPISecret  string
	ShopifyAppURL     string
	ShopifyScopes     string
	ShopifyAPIVersion string

	// 動画処理ポーリング
	PollAttempts int
	PollInterval time.Duration
	CDNDomain    string

	// Instagram
	InstagramAccessToken string

	// 自動同期ワーカー
	SyncInterval time.Duration

	// Rate Limit
	RateLimitAdmin  int // req/min/shop
	RateLimitEngage int // req/min/IP（ストアフロントの書き込み）

	// HTTP
	FetchTimeout time.Duration
	ServerPort   string

	// ストアフロントプロキシ
	ProxyVerifySignature bool
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.ShopifyAPIKey = os.Getenv("SHOPIFY_API_KEY")
	if cfg.ShopifyAPIKey == "" {
		missing = append(missing, "SHOPIFY_API_KEY")
	}

	cfg.ShopifyAPISecret = os.Getenv("SHOPIFY_API_SECRET")
	if cfg.ShopifyAPISecret == "" {
		missing = append(missing, "SHOPIFY_API_SECRET")
	}

	cfg.ShopifyAppURL = os.Getenv("SHOPIFY_APP_URL")
	if cfg.ShopifyAppURL == "" {
		missing = append(missing, "SHOPIFY_APP_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ShopifyScopes = getEnvString("SHOPIFY_SCOPES", "read_products,write_files")
	cfg.ShopifyAPIVersion = getEnvString("SHOPIFY_API_VERSION", "2024-10")
	cfg.PollAttempts = getEnvInt("POLL_ATTEMPTS", 10)
	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", 3*time.Second)
	cfg.CDNDomain = getEnvString("CDN_DOMAIN", "cdn.shopify.com")
	cfg.InstagramAccessToken = os.Getenv("INSTAGRAM_ACCESS_TOKEN")
	cfg.SyncInterval = getEnvDuration("SYNC_INTERVAL", 6*time.Hour)
	cfg.RateLimitAdmin = getEnvInt("RATE_LIMIT_ADMIN", 120)
	cfg.RateLimitEngage = getEnvInt("RATE_LIMIT_ENGAGE", 60)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.ProxyVerifySignature = getEnvBool("PROXY_VERIFY_SIGNATURE", false)

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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || v == "1"
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
