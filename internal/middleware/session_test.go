package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubVerifier はテスト用のセッショントークン検証スタブ。
type stubVerifier struct {
	shop string
	err  error
}

func (v *stubVerifier) Verify(tokenString string) (string, error) {
	if v.err != nil {
		return "", v.err
	}
	return v.shop, nil
}

func TestSessionTokenMiddleware_InjectsShopIntoContext(t *testing.T) {
	mw := NewSessionTokenMiddleware(&stubVerifier{shop: "example.myshopify.com"})

	var gotShop string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shop, err := ShopFromContext(r.Context())
		if err != nil {
			t.Errorf("ShopFromContext() error = %v", err)
		}
		gotShop = shop
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotShop != "example.myshopify.com" {
		t.Errorf("shop = %q, want %q", gotShop, "example.myshopify.com")
	}
}

func TestSessionTokenMiddleware_RejectsMissingHeader(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
	}{
		{name: "ヘッダーなし", authHeader: ""},
		{name: "Bearerプレフィックスなし", authHeader: "some-token"},
		{name: "トークンが空", authHeader: "Bearer "},
	}

	mw := NewSessionTokenMiddleware(&stubVerifier{shop: "example.myshopify.com"})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("ハンドラが呼ばれるべきではない")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
			}
		})
	}
}

func TestSessionTokenMiddleware_RejectsInvalidToken(t *testing.T) {
	mw := NewSessionTokenMiddleware(&stubVerifier{err: fmt.Errorf("署名が一致しません")})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("ハンドラが呼ばれるべきではない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/reels", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestShopFromContext_MissingShop(t *testing.T) {
	if _, err := ShopFromContext(context.Background()); err == nil {
		t.Error("expected error for missing shop")
	}
}

func TestContextWithShop_RoundTrip(t *testing.T) {
	ctx := ContextWithShop(context.Background(), "example.myshopify.com")
	shop, err := ShopFromContext(ctx)
	if err != nil {
		t.Fatalf("ShopFromContext() error = %v", err)
	}
	if shop != "example.myshopify.com" {
		t.Errorf("shop = %q, want %q", shop, "example.myshopify.com")
	}
}
