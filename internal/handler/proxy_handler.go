package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/spf13/cast"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/metrics"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/shopify"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/storefront"
)

// StorefrontResolverInterface はプロキシハンドラーが必要とするサービスインターフェース。
type StorefrontResolverInterface interface {
	// Resolve はショップのストアフロントコンテンツを解決する。
	Resolve(ctx context.Context, shop, productID string) (*storefront.Content, error)
	// IncrementViews は視聴数を加算し、更新後の値を返す。
	IncrementViews(ctx context.Context, shop string, reelID int64) (int, error)
	// ToggleLike はいいねをトグルし、更新後の状態を返す。
	ToggleLike(ctx context.Context, shop string, reelID int64, visitorID string, clientClaimsLiked bool) (*storefront.LikeResult, error)
}

// ProxyHandlerConfig はストアフロントプロキシの設定。
type ProxyHandlerConfig struct {
	// APISecret はアプリプロキシ署名の検証に使う共有シークレット。
	APISecret string
	// VerifySignature が真の場合、signatureクエリパラメータを検証する。
	VerifySignature bool
}

// ProxyHandler はストアフロントウィジェット向けアプリプロキシのHTTPハンドラー。
// 認証なしで公開されるため、shopはクエリパラメータで受け取る。
type ProxyHandler struct {
	resolver  StorefrontResolverInterface
	config    ProxyHandlerConfig
	collector metrics.MetricsCollector
}

// NewProxyHandler はProxyHandlerを生成する。
func NewProxyHandler(resolver StorefrontResolverInterface, config ProxyHandlerConfig, collector metrics.MetricsCollector) *ProxyHandler {
	return &ProxyHandler{
		resolver:  resolver,
		config:    config,
		collector: collector,
	}
}

// proxyContentResponse はストアフロント読み取りのレスポンス。
type proxyContentResponse struct {
	Reel     *reelResponse    `json:"reel"`
	Reels    []reelResponse   `json:"reels"`
	Settings settingsResponse `json:"settings"`
}

// GetContent はストアフロントウィジェットのコンテンツを返す。
// GET /proxy?shop=xxx&productId=yyy
func (h *ProxyHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	if !h.verifySignature(w, r) {
		return
	}
	h.collector.RecordProxyRequest("read")

	shop := r.URL.Query().Get("shop")
	productID := r.URL.Query().Get("productId")

	content, err := h.resolver.Resolve(r.Context(), shop, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := proxyContentResponse{
		Reels:    toReelResponses(content.Reels),
		Settings: toSettingsResponse(content.Settings),
	}
	if content.Reel != nil {
		primary := toReelResponse(content.Reel)
		resp.Reel = &primary
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// intentの既知の値
const (
	intentToggleLike     = "toggle_like"
	intentIncrementViews = "increment_views"
)

// engagementRequest はエンゲージメント書き込みのリクエストボディ。
// reelIdはウィジェット実装により数値でも文字列でも送られてくる。
type engagementRequest struct {
	ReelID    any    `json:"reelId"`
	Intent    string `json:"intent"`
	IsLiked   bool   `json:"isLiked"`
	VisitorID string `json:"visitorId"`
}

// PostEngagement はストアフロントからのエンゲージメント書き込みを処理する。
// POST /proxy?shop=xxx
func (h *ProxyHandler) PostEngagement(w http.ResponseWriter, r *http.Request) {
	if !h.verifySignature(w, r) {
		return
	}
	h.collector.RecordProxyRequest("engage")

	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewShopMissingError())
		return
	}

	var req engagementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	reelID := cast.ToInt64(req.ReelID)
	if reelID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewReelIDMissingError())
		return
	}

	switch req.Intent {
	case intentToggleLike:
		result, err := h.resolver.ToggleLike(r.Context(), shop, reelID, req.VisitorID, req.IsLiked)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		h.collector.RecordEngagement(intentToggleLike)
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"success": true,
			"likes":   result.Likes,
			"isLiked": result.Liked,
		})

	case intentIncrementViews:
		views, err := h.resolver.IncrementViews(r.Context(), shop, reelID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		h.collector.RecordEngagement(intentIncrementViews)
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"success": true,
			"views":   views,
		})

	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidIntentError(req.Intent))
	}
}

// verifySignature は設定が有効な場合、アプリプロキシ署名を検証する。
// 検証失敗時は403を書き込みfalseを返す。
func (h *ProxyHandler) verifySignature(w http.ResponseWriter, r *http.Request) bool {
	if !h.config.VerifySignature {
		return true
	}
	if shopify.VerifyProxySignature(h.config.APISecret, r.URL.Query()) {
		return true
	}

	slog.Warn("アプリプロキシ署名の検証に失敗しました",
		slog.String("shop", r.URL.Query().Get("shop")),
	)
	writeAPIErrorResponse(w, http.StatusForbidden, &model.APIError{
		Code:     "PROXY_SIGNATURE_INVALID",
		Message:  "リクエスト署名の検証に失敗しました。",
		Category: "auth",
		Action:   "ストアフロント経由でアクセスしてください。",
	})
	return false
}
