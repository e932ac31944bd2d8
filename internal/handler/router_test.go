package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/metrics"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/middleware"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/reel"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/storefront"
)

// mockHealthChecker はHealthCheckerのテスト用モック。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// mockSessionVerifier は固定のショップを返すセッショントークン検証スタブ。
type mockSessionVerifier struct {
	shop string
}

func (m *mockSessionVerifier) Verify(tokenString string) (string, error) {
	if tokenString != "valid-token" {
		return "", fmt.Errorf("署名が一致しません")
	}
	return m.shop, nil
}

// newTestRouter は全ルートをモックでワイヤリングしたルーターを返す。
func newTestRouter(t *testing.T, healthErr error) http.Handler {
	t.Helper()

	registry := prometheus.NewRegistry()
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(120, 60))
	t.Cleanup(rateLimiter.Stop)

	deps := &RouterDeps{
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		HealthChecker: &mockHealthChecker{err: healthErr},
		Gatherer:      registry,
		Collector:     metrics.NewCollector(registry),

		SessionVerifier: &mockSessionVerifier{shop: testShop},
		RateLimiter:     rateLimiter,

		StorefrontResolver: &mockStorefrontResolver{
			resolveFn: func(ctx context.Context, shop, productID string) (*storefront.Content, error) {
				if shop == "" {
					return nil, model.NewShopMissingError()
				}
				return &storefront.Content{Settings: model.DefaultAppSettings(shop)}, nil
			},
		},
		ProxyConfig: ProxyHandlerConfig{},

		OAuthProvider: &mockOAuthProvider{hmacValid: true},
		AuthConfig:    AuthHandlerConfig{APIKey: "api-key-1"},

		Sessions:        testSessionProvider(),
		SessionUpserter: &mockSessionUpserter{},
		UploadBroker:    &mockBroker{},
		Publisher:       &mockPublisher{},
		LibraryService: &mockLibraryService{
			listFn: func(ctx context.Context, shop, filter, sort, search string, page int) (*reel.ListResult, error) {
				return &reel.ListResult{Reels: []*model.Reel{}, Page: 1, TotalPages: 1}, nil
			},
		},
		SettingsService: &mockSettingsService{},
		InstagramSync:   &mockSyncService{},
		InstagramToken:  "ig-token",

		APISecret:      testWebhookSecret,
		ReelPurger:     &mockPurger{},
		SettingsPurger: &mockPurger{},
		SessionPurger:  &mockPurger{},
	}

	return NewRouter(deps)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	// DB接続が死んでいる場合は503
	router = newTestRouter(t, fmt.Errorf("connection refused"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, nil)

	// 先にプロキシを1回叩いてカウンターを発生させる
	req := httptest.NewRequest(http.MethodGet, "/proxy?shop="+testShop, nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "reelcart_proxy_requests_total") {
		t.Error("expected reelcart_proxy_requests_total in metrics output")
	}
}

func TestRouter_ProxyHeaders(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/proxy?shop="+testShop, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if got := w.Result().Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
	}
	if got := w.Result().Header.Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestRouter_AdminRequiresSessionToken(t *testing.T) {
	router := newTestRouter(t, nil)

	// Authorizationヘッダーなし → 401
	req := httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated: status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	// 有効なトークン → 200
	req = httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("authenticated: status = %d, want %d: %s", w.Result().StatusCode, http.StatusOK, w.Body.String())
	}
}

func TestRouter_WebhookRejectsUnsigned(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(`{}`))
	req.Header.Set(headerWebhookTopic, "app/uninstalled")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_OAuthLoginOutsideAuth(t *testing.T) {
	router := newTestRouter(t, nil)

	// OAuthルートはセッション認証の外にある
	req := httptest.NewRequest(http.MethodGet, "/auth/shopify/login?shop="+testShop, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusTemporaryRedirect)
	}
}
