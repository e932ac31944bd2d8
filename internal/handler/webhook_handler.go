package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/metrics"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/shopify"
)

// Shopifyが付与するWebhookヘッダー
const (
	headerWebhookTopic = "X-Shopify-Topic"
	headerWebhookShop  = "X-Shopify-Shop-Domain"
	headerWebhookHMAC  = "X-Shopify-Hmac-Sha256"
)

// webhookMaxBodySize はWebhookボディの最大サイズ（1MB）。
const webhookMaxBodySize = 1 << 20

// ShopDataPurger はショップ単位のデータ削除インターフェース。
// アンインストールWebhookで該当ショップのデータのみを消すために使う。
type ShopDataPurger interface {
	DeleteByShop(ctx context.Context, shop string) error
}

// WebhookHandler はShopify WebhookのHTTPハンドラー。
type WebhookHandler struct {
	apiSecret string
	reels     ShopDataPurger
	settings  ShopDataPurger
	sessions  ShopDataPurger
	collector metrics.MetricsCollector
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(apiSecret string, reels, settings, sessions ShopDataPurger, collector metrics.MetricsCollector) *WebhookHandler {
	return &WebhookHandler{
		apiSecret: apiSecret,
		reels:     reels,
		settings:  settings,
		sessions:  sessions,
		collector: collector,
	}
}

// Receive はWebhookを受信する。HMAC検証に失敗したリクエストは処理しない。
// POST /webhooks/shopify
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, webhookMaxBodySize))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの読み取りに失敗しました。",
			Category: "validation",
			Action:   "リクエストを確認してください。",
		})
		return
	}

	if !shopify.VerifyWebhookHMAC(h.apiSecret, body, r.Header.Get(headerWebhookHMAC)) {
		slog.Warn("webhook hmac verification failed",
			slog.String("topic", r.Header.Get(headerWebhookTopic)),
			slog.String("shop", r.Header.Get(headerWebhookShop)),
		)
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     model.ErrCodeWebhookVerify,
			Message:  "Webhook署名の検証に失敗しました。",
			Category: "auth",
			Action:   "Webhookの共有シークレットを確認してください。",
		})
		return
	}

	topic := r.Header.Get(headerWebhookTopic)
	shop := r.Header.Get(headerWebhookShop)
	h.collector.RecordWebhook(topic)

	switch topic {
	case "app/uninstalled":
		h.handleUninstalled(w, r.Context(), shop)

	// GDPR必須Webhook。個人情報は保持していないため受理のみ行う。
	case "customers/data_request", "customers/redact", "shop/redact":
		slog.Info("GDPR Webhookを受理しました",
			slog.String("topic", topic),
			slog.String("shop", shop),
		)
		w.WriteHeader(http.StatusOK)

	default:
		slog.Warn("未知のWebhookトピックです", slog.String("topic", topic))
		http.Error(w, "unknown webhook topic", http.StatusNotFound)
	}
}

// handleUninstalled はアンインストールされたショップのデータを削除する。
// 対象はそのショップのリール・設定・セッションのみで、他ショップには影響しない。
func (h *WebhookHandler) handleUninstalled(w http.ResponseWriter, ctx context.Context, shop string) {
	if shop == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewShopMissingError())
		return
	}

	for _, purger := range []ShopDataPurger{h.reels, h.settings, h.sessions} {
		if err := purger.DeleteByShop(ctx, shop); err != nil {
			slog.Error("アンインストール時のデータ削除に失敗しました",
				slog.String("shop", shop),
				slog.String("error", err.Error()),
			)
			writeInternalError(w)
			return
		}
	}

	slog.Info("アンインストールされたショップのデータを削除しました", slog.String("shop", shop))
	w.WriteHeader(http.StatusOK)
}
