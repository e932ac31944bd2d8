package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/metrics"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/storefront"
)

// testCollector はテスト用の独立したメトリクスコレクターを返す。
func testCollector() metrics.MetricsCollector {
	return metrics.NewCollector(prometheus.NewRegistry())
}

// mockStorefrontResolver はStorefrontResolverInterfaceのテスト用モック。
type mockStorefrontResolver struct {
	resolveFn        func(ctx context.Context, shop, productID string) (*storefront.Content, error)
	incrementViewsFn func(ctx context.Context, shop string, reelID int64) (int, error)
	toggleLikeFn     func(ctx context.Context, shop string, reelID int64, visitorID string, clientClaimsLiked bool) (*storefront.LikeResult, error)
}

func (m *mockStorefrontResolver) Resolve(ctx context.Context, shop, productID string) (*storefront.Content, error) {
	return m.resolveFn(ctx, shop, productID)
}

func (m *mockStorefrontResolver) IncrementViews(ctx context.Context, shop string, reelID int64) (int, error) {
	return m.incrementViewsFn(ctx, shop, reelID)
}

func (m *mockStorefrontResolver) ToggleLike(ctx context.Context, shop string, reelID int64, visitorID string, clientClaimsLiked bool) (*storefront.LikeResult, error) {
	return m.toggleLikeFn(ctx, shop, reelID, visitorID, clientClaimsLiked)
}

// testReel はテスト用のリールを返す。
func testReel(id int64) *model.Reel {
	return &model.Reel{
		ID:         id,
		Shop:       "example.myshopify.com",
		VideoURL:   "https://cdn.shopify.com/videos/reel.mp4",
		Source:     model.SourceManual,
		Views:      10,
		BoostViews: 100,
		Likes:      5,
		Rating:     "5.0",
		IsLive:     true,
		Price:      decimal.RequireFromString("1999.50"),
		CreatedAt:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestProxyHandler_GetContent(t *testing.T) {
	reel := testReel(1)
	resolver := &mockStorefrontResolver{
		resolveFn: func(ctx context.Context, shop, productID string) (*storefront.Content, error) {
			if shop != "example.myshopify.com" {
				t.Errorf("shop = %q, want %q", shop, "example.myshopify.com")
			}
			if productID != "prod-1" {
				t.Errorf("productID = %q, want %q", productID, "prod-1")
			}
			return &storefront.Content{
				Reel:     reel,
				Reels:    []*model.Reel{reel},
				Settings: model.DefaultAppSettings(shop),
			}, nil
		},
	}

	h := NewProxyHandler(resolver, ProxyHandlerConfig{}, testCollector())

	req := httptest.NewRequest(http.MethodGet, "/proxy?shop=example.myshopify.com&productId=prod-1", nil)
	w := httptest.NewRecorder()

	h.GetContent(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp struct {
		Reel     *reelResponse    `json:"reel"`
		Reels    []reelResponse   `json:"reels"`
		Settings settingsResponse `json:"settings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp.Reel == nil || resp.Reel.ID != 1 {
		t.Errorf("reel = %+v, want id 1", resp.Reel)
	}
	// viewsは実視聴数と上乗せ分の合計
	if resp.Reel.Views != 110 {
		t.Errorf("views = %d, want 110", resp.Reel.Views)
	}
	if resp.Reel.Price != "1999.5" {
		t.Errorf("price = %q, want %q", resp.Reel.Price, "1999.5")
	}
	if len(resp.Reels) != 1 {
		t.Errorf("reels length = %d, want 1", len(resp.Reels))
	}
	if resp.Settings.WidgetHeading != "Trending Reels" {
		t.Errorf("widgetHeading = %q, want %q", resp.Settings.WidgetHeading, "Trending Reels")
	}
}

func TestProxyHandler_GetContent_NoPrimaryReel(t *testing.T) {
	resolver := &mockStorefrontResolver{
		resolveFn: func(ctx context.Context, shop, productID string) (*storefront.Content, error) {
			return &storefront.Content{
				Reels:    []*model.Reel{},
				Settings: model.DefaultAppSettings(shop),
			}, nil
		},
	}

	h := NewProxyHandler(resolver, ProxyHandlerConfig{}, testCollector())

	req := httptest.NewRequest(http.MethodGet, "/proxy?shop=example.myshopify.com", nil)
	w := httptest.NewRecorder()

	h.GetContent(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	// 空リールでも200で、reelはnull、reelsは空配列
	body := w.Body.String()
	if !strings.Contains(body, `"reel":null`) {
		t.Errorf("expected null reel, got %s", body)
	}
	if !strings.Contains(body, `"reels":[]`) {
		t.Errorf("expected empty reels array, got %s", body)
	}
}

func TestProxyHandler_GetContent_ShopMissing(t *testing.T) {
	resolver := &mockStorefrontResolver{
		resolveFn: func(ctx context.Context, shop, productID string) (*storefront.Content, error) {
			return nil, model.NewShopMissingError()
		},
	}

	h := NewProxyHandler(resolver, ProxyHandlerConfig{}, testCollector())

	req := httptest.NewRequest(http.MethodGet, "/proxy", nil)
	w := httptest.NewRecorder()

	h.GetContent(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	var resp apiErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Code != model.ErrCodeShopMissing {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeShopMissing)
	}
}

func TestProxyHandler_PostEngagement_ToggleLike(t *testing.T) {
	resolver := &mockStorefrontResolver{
		toggleLikeFn: func(ctx context.Context, shop string, reelID int64, visitorID string, clientClaimsLiked bool) (*storefront.LikeResult, error) {
			if reelID != 7 {
				t.Errorf("reelID = %d, want 7", reelID)
			}
			if visitorID != "0d4aa0e0-82f7-4f6e-9df1-1d4c48f0a111" {
				t.Errorf("visitorID = %q", visitorID)
			}
			return &storefront.LikeResult{Likes: 6, Liked: true}, nil
		},
	}

	h := NewProxyHandler(resolver, ProxyHandlerConfig{}, testCollector())

	body := `{"reelId":7,"intent":"toggle_like","visitorId":"0d4aa0e0-82f7-4f6e-9df1-1d4c48f0a111"}`
	req := httptest.NewRequest(http.MethodPost, "/proxy?shop=example.myshopify.com", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.PostEngagement(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Result().StatusCode, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["likes"].(float64) != 6 {
		t.Errorf("likes = %v, want 6", resp["likes"])
	}
	if resp["isLiked"].(bool) != true {
		t.Errorf("isLiked = %v, want true", resp["isLiked"])
	}
}

func TestProxyHandler_PostEngagement_IncrementViews(t *testing.T) {
	resolver := &mockStorefrontResolver{
		incrementViewsFn: func(ctx context.Context, shop string, reelID int64) (int, error) {
			return 11, nil
		},
	}

	h := NewProxyHandler(resolver, ProxyHandlerConfig{}, testCollector())

	// reelIdは文字列で送られてくることもある
	body := `{"reelId":"7","intent":"increment_views"}`
	req := httptest.NewRequest(http.MethodPost, "/proxy?shop=example.myshopify.com", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.PostEngagement(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["views"].(float64) != 11 {
		t.Errorf("views = %v, want 11", resp["views"])
	}
}

func TestProxyHandler_PostEngagement_Validation(t *testing.T) {
	resolver := &mockStorefrontResolver{}
	h := NewProxyHandler(resolver, ProxyHandlerConfig{}, testCollector())

	tests := []struct {
		name     string
		url      string
		body     string
		wantCode string
	}{
		{
			name:     "shopなし",
			url:      "/proxy",
			body:     `{"reelId":1,"intent":"toggle_like"}`,
			wantCode: model.ErrCodeShopMissing,
		},
		{
			name:     "reelIdなし",
			url:      "/proxy?shop=example.myshopify.com",
			body:     `{"intent":"toggle_like"}`,
			wantCode: model.ErrCodeReelIDMissing,
		},
		{
			name:     "未知のintent",
			url:      "/proxy?shop=example.myshopify.com",
			body:     `{"reelId":1,"intent":"boost_rating"}`,
			wantCode: model.ErrCodeInvalidIntent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.url, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.PostEngagement(w, req)

			if w.Result().StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
			}

			var resp apiErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestProxyHandler_PostEngagement_ReelNotFound(t *testing.T) {
	resolver := &mockStorefrontResolver{
		incrementViewsFn: func(ctx context.Context, shop string, reelID int64) (int, error) {
			return 0, model.NewReelNotFoundError(reelID)
		},
	}

	h := NewProxyHandler(resolver, ProxyHandlerConfig{}, testCollector())

	body := `{"reelId":999,"intent":"increment_views"}`
	req := httptest.NewRequest(http.MethodPost, "/proxy?shop=example.myshopify.com", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.PostEngagement(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestProxyHandler_SignatureVerification(t *testing.T) {
	secret := "proxy-secret"
	resolver := &mockStorefrontResolver{
		resolveFn: func(ctx context.Context, shop, productID string) (*storefront.Content, error) {
			return &storefront.Content{Settings: model.DefaultAppSettings(shop)}, nil
		},
	}

	h := NewProxyHandler(resolver, ProxyHandlerConfig{APISecret: secret, VerifySignature: true}, testCollector())

	// 署名なし → 403
	req := httptest.NewRequest(http.MethodGet, "/proxy?shop=example.myshopify.com", nil)
	w := httptest.NewRecorder()
	h.GetContent(w, req)
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("unsigned request: status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}

	// 正しい署名 → 200
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("shop=example.myshopify.com"))
	signature := hex.EncodeToString(mac.Sum(nil))

	req = httptest.NewRequest(http.MethodGet, "/proxy?shop=example.myshopify.com&signature="+signature, nil)
	w = httptest.NewRecorder()
	h.GetContent(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("signed request: status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}
