package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/shopify"
)

const oauthStateCookie = "oauth_state"

// OAuthProviderInterface は認証ハンドラーが必要とするOAuthプロバイダのインターフェース。
type OAuthProviderInterface interface {
	// AuthorizeURL はショップの認可URLを返す。
	AuthorizeURL(shop, state string) string
	// VerifyCallbackHMAC はコールバッククエリのhmacパラメータを検証する。
	VerifyCallbackHMAC(query url.Values) bool
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, shop, code string) (accessToken, scope string, err error)
}

// SessionUpserter はOAuthセッションの保存インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionUpserter interface {
	Upsert(ctx context.Context, session *model.Session) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// APIKey はインストール完了後のリダイレクト先（Shopify管理画面内のアプリURL）の組み立てに使う。
	APIKey string
	// CookieSecure はstateクッキーにSecure属性を付けるか。
	CookieSecure bool
}

// AuthHandler はShopify OAuthインストールフローのHTTPハンドラー。
type AuthHandler struct {
	provider OAuthProviderInterface
	sessions SessionUpserter
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(provider OAuthProviderInterface, sessions SessionUpserter, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		sessions: sessions,
		config:   config,
	}
}

// Login はOAuthインストールフローを開始する。
// GET /auth/shopify/login?shop=example.myshopify.com
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if !shopify.ValidShopDomain(shop) {
		http.Error(w, "invalid shop parameter", http.StatusBadRequest)
		return
	}

	state := uuid.NewString()

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthorizeURL(shop, state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、オフラインセッションを保存する。
// GET /auth/shopify/callback?shop=xxx&code=yyy&state=zzz&hmac=...
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// 1. stateの検証（CSRF対策）
	state := query.Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. hmacパラメータの検証
	if !h.provider.VerifyCallbackHMAC(query) {
		slog.Warn("oauth hmac verification failed",
			slog.String("shop", query.Get("shop")),
		)
		http.Error(w, "hmac verification failed", http.StatusBadRequest)
		return
	}

	shop := query.Get("shop")
	if !shopify.ValidShopDomain(shop) {
		http.Error(w, "invalid shop parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 認可コードをアクセストークンに交換
	accessToken, scope, err := h.provider.ExchangeCode(r.Context(), shop, code)
	if err != nil {
		slog.Error("oauth code exchange failed",
			slog.String("shop", shop),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// 4. オフラインセッションを保存
	session := &model.Session{
		ID:          model.OfflineSessionID(shop),
		Shop:        shop,
		AccessToken: accessToken,
		Scope:       scope,
		IsOnline:    false,
	}
	if err := h.sessions.Upsert(r.Context(), session); err != nil {
		slog.Error("failed to save oauth session",
			slog.String("shop", shop),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	slog.Info("アプリをインストールしました", slog.String("shop", shop))

	// 5. Shopify管理画面内のアプリページへリダイレクト
	http.Redirect(w, r, "https://"+shop+"/admin/apps/"+h.config.APIKey, http.StatusTemporaryRedirect)
}
