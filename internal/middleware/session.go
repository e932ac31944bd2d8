// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// shopContextKey はリクエストコンテキストにショップドメインを格納するためのキー。
var shopContextKey = contextKey("shop")

// SessionTokenVerifier はApp Bridgeセッショントークンの検証に必要なインターフェース。
// 検証に成功した場合、トークンが属するショップドメインを返す。
type SessionTokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// NewSessionTokenMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// ショップドメインをリクエストコンテキストに注入するミドルウェアを返す。
// 埋め込みアプリの管理APIはすべてこのミドルウェアの後に配置する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionTokenMiddleware(verifier SessionTokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. AuthorizationヘッダーからBearerトークンを取得
			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 2. セッショントークンを検証し、ショップドメインを得る
			shop, err := verifier.Verify(tokenString)
			if err != nil {
				slog.Warn("セッショントークンの検証に失敗しました",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 3. ショップドメインをコンテキストに注入
			ctx := context.WithValue(r.Context(), shopContextKey, shop)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ShopFromContext はリクエストコンテキストからショップドメインを取得する。
// セッショントークンミドルウェアを通過したリクエストでのみ有効。
func ShopFromContext(ctx context.Context) (string, error) {
	shop, ok := ctx.Value(shopContextKey).(string)
	if !ok || shop == "" {
		return "", fmt.Errorf("shop not found in context")
	}
	return shop, nil
}

// ContextWithShop はコンテキストにショップドメインを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithShop(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, shopContextKey, shop)
}
