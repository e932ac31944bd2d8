// Package app はアプリケーションの起動とサブコマンドごとの依存関係の
// ワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/config"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/database"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/handler"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/instagram"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/logger"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/metrics"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/middleware"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/reel"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/repository"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/security"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/settings"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/shopify"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/storefront"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/worker/autosync"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("app_url", cfg.ShopifyAppURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	reelRepo := repository.NewPostgresReelRepo(db)
	settingsRepo := repository.NewPostgresSettingsRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 5. 外部APIクライアントの初期化
	httpClient := &http.Client{Timeout: cfg.FetchTimeout}

	shopifyClient := shopify.NewClient(httpClient, slog.Default(), cfg.ShopifyAPIVersion)
	uploadBroker := shopify.NewStagedUploadBroker(shopifyClient, slog.Default())
	fileService := shopify.NewFileService(
		shopifyClient, slog.Default(), cfg.PollAttempts, cfg.PollInterval, cfg.CDNDomain,
	)
	oauthProvider := shopify.NewOAuthProvider(shopify.OAuthConfig{
		APIKey:    cfg.ShopifyAPIKey,
		APISecret: cfg.ShopifyAPISecret,
		AppURL:    cfg.ShopifyAppURL,
		Scopes:    cfg.ShopifyScopes,
	}, httpClient)
	sessionVerifier := shopify.NewSessionTokenVerifier(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret)

	instagramClient := instagram.NewClient(httpClient, slog.Default())
	thumbnailResolver := instagram.NewThumbnailResolver(httpClient, slog.Default())
	syncService := instagram.NewSyncService(
		instagramClient, thumbnailResolver, reelRepo, ssrfGuard, sanitizer, slog.Default(),
	)

	// 6. ドメインサービスの初期化
	publisher := reel.NewPublishPipeline(
		fileService,
		newTimedURLResolver(fileService, collector),
		reelRepo,
		slog.Default(),
	)
	libraryService := reel.NewLibraryService(reelRepo, slog.Default())
	settingsService := settings.NewService(settingsRepo, slog.Default())
	storefrontResolver := storefront.NewResolver(reelRepo, settingsRepo, slog.Default())

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitAdmin, cfg.RateLimitEngage),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:        slog.Default(),
		HealthChecker: db,
		Gatherer:      registry,
		Collector:     collector,

		SessionVerifier: sessionVerifier,
		RateLimiter:     rateLimiter,

		StorefrontResolver: storefrontResolver,
		ProxyConfig: handler.ProxyHandlerConfig{
			APISecret:       cfg.ShopifyAPISecret,
			VerifySignature: cfg.ProxyVerifySignature,
		},

		OAuthProvider: oauthProvider,
		AuthConfig: handler.AuthHandlerConfig{
			APIKey:       cfg.ShopifyAPIKey,
			CookieSecure: strings.HasPrefix(cfg.ShopifyAppURL, "https://"),
		},

		Sessions:        sessionRepo,
		SessionUpserter: sessionRepo,
		UploadBroker:    uploadBroker,
		Publisher:       publisher,
		LibraryService:  libraryService,
		SettingsService: settingsService,
		InstagramSync:   syncService,
		InstagramToken:  cfg.InstagramAccessToken,

		APISecret:      cfg.ShopifyAPISecret,
		ReelPurger:     reelRepo,
		SettingsPurger: settingsRepo,
		SessionPurger:  sessionRepo,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は自動同期ワーカーモードで起動する。
// DB接続を開き、auto_sync有効ショップの定期Instagram同期スケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	reelRepo := repository.NewPostgresReelRepo(db)
	settingsRepo := repository.NewPostgresSettingsRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. 同期サービスの初期化
	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	instagramClient := instagram.NewClient(httpClient, slog.Default())
	thumbnailResolver := instagram.NewThumbnailResolver(httpClient, slog.Default())
	syncService := instagram.NewSyncService(
		instagramClient, thumbnailResolver, reelRepo, ssrfGuard, sanitizer, slog.Default(),
	)

	// 5. スケジューラの起動
	scheduler := autosync.NewScheduler(
		settingsRepo, syncService, cfg.InstagramAccessToken, slog.Default(), 5,
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sync_interval", cfg.SyncInterval),
	)

	// 同期スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.SyncInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

// timedURLResolver は処理済みURL解決の所要時間をメトリクスに記録するデコレータ。
type timedURLResolver struct {
	inner     shopify.ProcessedURLResolver
	collector metrics.MetricsCollector
}

func newTimedURLResolver(inner shopify.ProcessedURLResolver, collector metrics.MetricsCollector) *timedURLResolver {
	return &timedURLResolver{inner: inner, collector: collector}
}

func (r *timedURLResolver) Resolve(ctx context.Context, session *model.Session, fileID, originalURL string) (string, error) {
	start := time.Now()
	url, err := r.inner.Resolve(ctx, session, fileID, originalURL)
	r.collector.RecordPollDuration(time.Since(start))
	return url, err
}
