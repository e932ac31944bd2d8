package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- AdminMiddleware (ショップ単位) のテスト ---

func TestAdminMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	cfg := RateLimiterConfig{
		AdminRate:       2, // 2 req/sec
		AdminBurst:      5, // バースト5
		EngageRate:      1, // 未使用
		EngageBurst:     10,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.AdminMiddleware()

	handlerCallCount := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
		req = req.WithContext(ContextWithShop(req.Context(), "shop-a.myshopify.com"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Result().StatusCode, http.StatusOK)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestAdminMiddleware_Returns429WhenLimitExceeded(t *testing.T) {
	cfg := RateLimiterConfig{
		AdminRate:       1, // 1 req/sec
		AdminBurst:      2, // バースト2
		EngageRate:      1,
		EngageBurst:     10,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	mw := rl.AdminMiddleware()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
		req = req.WithContext(ContextWithShop(req.Context(), "shop-limit.myshopify.com"))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	// バースト分（2回）は通る
	for i := 0; i < 2; i++ {
		if w := send(); w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Result().StatusCode, http.StatusOK)
		}
	}

	// 3回目はレート制限に引っかかる
	w := send()
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusTooManyRequests)
	}

	// Retry-Afterヘッダーと統一エラーフォーマットの検証
	if w.Result().Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body["code"] != "rate_limit_exceeded" {
		t.Errorf("code = %q, want %q", body["code"], "rate_limit_exceeded")
	}
}

func TestAdminMiddleware_IsolatesShops(t *testing.T) {
	cfg := RateLimiterConfig{
		AdminRate:       1,
		AdminBurst:      1, // バースト1
		EngageRate:      1,
		EngageBurst:     10,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.AdminMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(shop string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
		req = req.WithContext(ContextWithShop(req.Context(), shop))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Result().StatusCode
	}

	// shop-aのバーストを使い切る
	if got := send("shop-a.myshopify.com"); got != http.StatusOK {
		t.Errorf("shop-a first request: status = %d, want %d", got, http.StatusOK)
	}
	if got := send("shop-a.myshopify.com"); got != http.StatusTooManyRequests {
		t.Errorf("shop-a second request: status = %d, want %d", got, http.StatusTooManyRequests)
	}

	// shop-bは影響を受けない
	if got := send("shop-b.myshopify.com"); got != http.StatusOK {
		t.Errorf("shop-b first request: status = %d, want %d", got, http.StatusOK)
	}

	if count := rl.AdminLimiterCount(); count != 2 {
		t.Errorf("AdminLimiterCount() = %d, want 2", count)
	}
}

func TestAdminMiddleware_RejectsUnauthenticatedRequest(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(120, 60))
	defer rl.Stop()

	handler := rl.AdminMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("ハンドラが呼ばれるべきではない")
	}))

	// ショップがコンテキストに無いリクエスト
	req := httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- EngageMiddleware (IP単位) のテスト ---

func TestEngageMiddleware_IsolatesClientIPs(t *testing.T) {
	cfg := RateLimiterConfig{
		AdminRate:       1,
		AdminBurst:      10,
		EngageRate:      1,
		EngageBurst:     1, // バースト1
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.EngageMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/proxy", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Result().StatusCode
	}

	if got := send("203.0.113.1:50000"); got != http.StatusOK {
		t.Errorf("first request from .1: status = %d, want %d", got, http.StatusOK)
	}
	if got := send("203.0.113.1:50001"); got != http.StatusTooManyRequests {
		t.Errorf("second request from .1: status = %d, want %d", got, http.StatusTooManyRequests)
	}
	if got := send("203.0.113.2:50000"); got != http.StatusOK {
		t.Errorf("first request from .2: status = %d, want %d", got, http.StatusOK)
	}
}

func TestEngageMiddleware_UsesForwardedForHeader(t *testing.T) {
	cfg := RateLimiterConfig{
		AdminRate:       1,
		AdminBurst:      10,
		EngageRate:      1,
		EngageBurst:     1,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.EngageMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/proxy", nil)
		req.RemoteAddr = "10.0.0.1:80"
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Result().StatusCode
	}

	// 同じ転送元IPは同じリミッターを共有する
	if got := send("198.51.100.7, 10.0.0.1"); got != http.StatusOK {
		t.Errorf("first request: status = %d, want %d", got, http.StatusOK)
	}
	if got := send("198.51.100.7, 10.0.0.2"); got != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want %d", got, http.StatusTooManyRequests)
	}
}

// --- クリーンアップと設定のテスト ---

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	cfg := RateLimiterConfig{
		AdminRate:       1,
		AdminBurst:      1,
		EngageRate:      1,
		EngageBurst:     1,
		CleanupInterval: 1 * time.Millisecond,
	}

	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	rl.getOrCreateLimiter(&rl.adminMu, rl.adminLimiters, "stale.myshopify.com", cfg.AdminRate, cfg.AdminBurst)

	// TTL（CleanupIntervalの2倍）を超えて古くする
	rl.adminMu.Lock()
	rl.adminLimiters["stale.myshopify.com"].lastAccess = time.Now().Add(-1 * time.Hour)
	rl.adminMu.Unlock()

	rl.cleanup()

	if count := rl.AdminLimiterCount(); count != 0 {
		t.Errorf("AdminLimiterCount() after cleanup = %d, want 0", count)
	}
}

func TestNewRateLimiterConfig_ConvertsPerMinute(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 60)

	if got := float64(cfg.AdminRate); got != 2.0 {
		t.Errorf("AdminRate = %v, want 2.0", got)
	}
	if cfg.AdminBurst != 120 {
		t.Errorf("AdminBurst = %d, want 120", cfg.AdminBurst)
	}
	if got := float64(cfg.EngageRate); got != 1.0 {
		t.Errorf("EngageRate = %v, want 1.0", got)
	}
	if cfg.EngageBurst != 60 {
		t.Errorf("EngageBurst = %d, want 60", cfg.EngageBurst)
	}
}
