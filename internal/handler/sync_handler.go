package handler

import (
	"context"
	"net/http"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/metrics"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/middleware"
)

// InstagramSyncInterface はInstagram同期ハンドラーが必要とするサービスインターフェース。
type InstagramSyncInterface interface {
	// Sync は動画メディアを取り込み、同期した件数を返す。
	Sync(ctx context.Context, shop, accessToken string) (int, error)
}

// SyncHandler はInstagram同期のHTTPハンドラー。
type SyncHandler struct {
	service     InstagramSyncInterface
	accessToken string
	collector   metrics.MetricsCollector
}

// NewSyncHandler はSyncHandlerを生成する。
func NewSyncHandler(service InstagramSyncInterface, accessToken string, collector metrics.MetricsCollector) *SyncHandler {
	return &SyncHandler{
		service:     service,
		accessToken: accessToken,
		collector:   collector,
	}
}

// SyncInstagram はInstagramの動画メディアを手動で同期する。
// POST /api/admin/instagram/sync
func (h *SyncHandler) SyncInstagram(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	synced, err := h.service.Sync(r.Context(), shop, h.accessToken)
	if err != nil {
		h.collector.RecordSyncFailure()
		handleServiceError(w, err)
		return
	}

	h.collector.RecordSync(synced)
	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "synced": synced})
}
