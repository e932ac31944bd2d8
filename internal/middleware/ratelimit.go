package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	AdminRate       rate.Limit    // 管理APIのレート（req/sec）。120/60 = 2 req/sec
	AdminBurst      int           // 管理APIのバーストサイズ
	EngageRate      rate.Limit    // ストアフロント書き込みのレート（req/sec）。60/60
	EngageBurst     int           // ストアフロント書き込みのバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// NewRateLimiterConfig はreq/min単位の設定値からレート制限設定を生成する。
// 管理APIはショップ単位、ストアフロントのエンゲージメント書き込みはIP単位で制限する。
func NewRateLimiterConfig(adminPerMin, engagePerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		AdminRate:       rate.Limit(float64(adminPerMin) / 60.0),
		AdminBurst:      adminPerMin,
		EngageRate:      rate.Limit(float64(engagePerMin) / 60.0),
		EngageBurst:     engagePerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

// keyLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はキーごとのレート制限を管理する。
// 管理API（ショップ単位）とエンゲージメント書き込み（IP単位）の2種類を提供する。
type RateLimiter struct {
	config RateLimiterConfig

	adminMu       sync.RWMutex
	adminLimiters map[string]*keyLimiter

	engageMu       sync.RWMutex
	engageLimiters map[string]*keyLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:         config,
		adminLimiters:  make(map[string]*keyLimiter),
		engageLimiters: make(map[string]*keyLimiter),
		stopCh:         make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// AdminMiddleware は管理APIのショップ単位レート制限ミドルウェアを返す。
// リクエストコンテキストにショップドメインが含まれている必要がある
// （SessionTokenMiddlewareの後に配置）。
func (rl *RateLimiter) AdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop, err := ShopFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateLimiter(&rl.adminMu, rl.adminLimiters, shop, rl.config.AdminRate, rl.config.AdminBurst)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.AdminRate)
				slog.Warn("rate limit exceeded",
					slog.String("shop", shop),
					slog.String("limit_type", "admin"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// EngageMiddleware はストアフロントのエンゲージメント書き込み専用の
// IP単位レート制限ミドルウェアを返す。管理APIのレート制限とは独立に動作する。
func (rl *RateLimiter) EngageMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			limiter := rl.getOrCreateLimiter(&rl.engageMu, rl.engageLimiters, ip, rl.config.EngageRate, rl.config.EngageBurst)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.EngageRate)
				slog.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("limit_type", "engage"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminLimiterCount は現在管理されている管理APIリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) AdminLimiterCount() int {
	rl.adminMu.RLock()
	defer rl.adminMu.RUnlock()
	return len(rl.adminLimiters)
}

// EngageLimiterCount は現在管理されているエンゲージメントリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) EngageLimiterCount() int {
	rl.engageMu.RLock()
	defer rl.engageMu.RUnlock()
	return len(rl.engageLimiters)
}

// getOrCreateLimiter はキーに対応するリミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateLimiter(mu *sync.RWMutex, limiters map[string]*keyLimiter, key string, r rate.Limit, burst int) *rate.Limiter {
	mu.RLock()
	kl, exists := limiters[key]
	mu.RUnlock()

	if exists {
		mu.Lock()
		kl.lastAccess = time.Now()
		mu.Unlock()
		return kl.limiter
	}

	mu.Lock()
	defer mu.Unlock()

	// ダブルチェック
	if kl, exists := limiters[key]; exists {
		kl.lastAccess = time.Now()
		return kl.limiter
	}

	limiter := rate.NewLimiter(r, burst)
	limiters[key] = &keyLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.adminMu.Lock()
	for key, kl := range rl.adminLimiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(rl.adminLimiters, key)
		}
	}
	rl.adminMu.Unlock()

	rl.engageMu.Lock()
	for key, kl := range rl.engageLimiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(rl.engageLimiters, key)
		}
	}
	rl.engageMu.Unlock()
}

// clientIP はリクエスト元のIPアドレスを取得する。
// プロキシ経由の場合はX-Forwarded-Forの先頭エントリを使用する。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "リクエストが多すぎます。しばらく待ってから再度お試しください。",
		"category": "system",
		"action":   "Retry-Afterヘッダーの秒数だけ待ってから再試行してください。",
	})
}
