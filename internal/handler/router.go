package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/metrics"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 共通
	Logger        *slog.Logger
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer
	Collector     metrics.MetricsCollector

	// ミドルウェア依存
	SessionVerifier middleware.SessionTokenVerifier
	RateLimiter     *middleware.RateLimiter

	// ストアフロントプロキシ
	StorefrontResolver StorefrontResolverInterface
	ProxyConfig        ProxyHandlerConfig

	// OAuth
	OAuthProvider OAuthProviderInterface
	AuthConfig    AuthHandlerConfig

	// 管理API
	Sessions        SessionProvider
	SessionUpserter SessionUpserter
	UploadBroker    StagedUploadServiceInterface
	Publisher       PublishServiceInterface
	LibraryService  LibraryServiceInterface
	SettingsService SettingsServiceInterface
	InstagramSync   InstagramSyncInterface
	InstagramToken  string

	// Webhook
	APISecret      string
	ReelPurger     ShopDataPurger
	SettingsPurger ShopDataPurger
	SessionPurger  ShopDataPurger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → （プロキシ: ProxyHeaders → 書き込みのみEngageRateLimit）
//	                   → （管理API: SecurityHeaders → SessionToken → AdminRateLimit）
//
// OAuthルート（/auth/*）とWebhook（/webhooks/*）はセッション認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	proxyHandler := NewProxyHandler(deps.StorefrontResolver, deps.ProxyConfig, deps.Collector)
	authHandler := NewAuthHandler(deps.OAuthProvider, deps.SessionUpserter, deps.AuthConfig)
	uploadHandler := NewUploadHandler(deps.Sessions, deps.UploadBroker, deps.Publisher, deps.Collector)
	libraryHandler := NewLibraryHandler(deps.LibraryService)
	settingsHandler := NewSettingsHandler(deps.SettingsService)
	syncHandler := NewSyncHandler(deps.InstagramSync, deps.InstagramToken, deps.Collector)
	webhookHandler := NewWebhookHandler(deps.APISecret, deps.ReelPurger, deps.SettingsPurger, deps.SessionPurger, deps.Collector)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// --- ストアフロントプロキシ（認証なし、CORS全開放・キャッシュ禁止） ---
	r.Route("/proxy", func(r chi.Router) {
		r.Use(middleware.NewProxyHeadersMiddleware())
		r.Get("/", proxyHandler.GetContent)
		// エンゲージメント書き込みのみIP単位のレート制限を追加
		r.With(deps.RateLimiter.EngageMiddleware()).Post("/", proxyHandler.PostEngagement)
	})

	// --- OAuthインストールフロー ---
	r.Route("/auth/shopify", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
	})

	// --- Webhook（HMAC検証で保護） ---
	r.Post("/webhooks/shopify", webhookHandler.Receive)

	// --- 管理API（App Bridgeセッショントークンで保護） ---
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewSessionTokenMiddleware(deps.SessionVerifier))
		r.Use(deps.RateLimiter.AdminMiddleware())

		r.Post("/uploads/staged", uploadHandler.CreateStagedUpload)

		r.Route("/reels", func(r chi.Router) {
			r.Post("/", uploadHandler.PublishReel)
			r.Get("/", libraryHandler.ListReels)

			r.Post("/bulk/status", libraryHandler.BulkSetLive)
			r.Post("/bulk/delete", libraryHandler.BulkDelete)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/live", libraryHandler.ToggleLive)
				r.Patch("/product", libraryHandler.LinkProduct)
				r.Patch("/stats", libraryHandler.UpdateStats)
				r.Delete("/", libraryHandler.DeleteReel)
			})
		})

		r.Post("/instagram/sync", syncHandler.SyncInstagram)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingsHandler.GetSettings)
			r.Put("/", settingsHandler.UpdateSettings)
		})
	})

	return r
}
