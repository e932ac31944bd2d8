package middleware

import "net/http"

// NewProxyHeadersMiddleware はストアフロントプロキシ応答用のヘッダーを付与するミドルウェアを返す。
// ウィジェットは任意のストアフロントドメインから読み込まれるためオリジンは制限しない。
// エンゲージメント数は毎回最新を返す必要があるため、すべてのキャッシュを禁止する。
// OPTIONSプリフライトリクエストには204で応答する。
func NewProxyHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
