package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/middleware"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/reel"
)

// LibraryServiceInterface はライブラリハンドラーが必要とするサービスインターフェース。
type LibraryServiceInterface interface {
	// List は一覧をタブフィルタ・ソート・検索・ページ指定で取得する。
	List(ctx context.Context, shop, filter, sort, search string, page int) (*reel.ListResult, error)
	// ToggleLive はリールの公開状態を更新する。
	ToggleLive(ctx context.Context, shop string, id int64, isLive bool) error
	// LinkProduct はリールに商品リンクを設定する。
	LinkProduct(ctx context.Context, shop string, id int64, link reel.ProductLink) error
	// UpdateStats は上乗せ視聴数・いいね数・レーティングを上書きする。
	UpdateStats(ctx context.Context, shop string, id int64, update reel.StatsUpdate) error
	// Delete はリールを削除する。
	Delete(ctx context.Context, shop string, id int64) error
	// BulkDelete は複数リールを削除し、削除件数を返す。
	BulkDelete(ctx context.Context, shop string, ids []int64) (int, error)
	// BulkSetLive は複数リールの公開状態を更新し、更新件数を返す。
	BulkSetLive(ctx context.Context, shop string, ids []int64, isLive bool) (int, error)
}

// LibraryHandler は管理画面のリールライブラリのHTTPハンドラー。
type LibraryHandler struct {
	service LibraryServiceInterface
}

// NewLibraryHandler はLibraryHandlerを生成する。
func NewLibraryHandler(service LibraryServiceInterface) *LibraryHandler {
	return &LibraryHandler{service: service}
}

// listReelsResponse は一覧のAPIレスポンス。
type listReelsResponse struct {
	Reels      []reelResponse `json:"reels"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

// ListReels はリール一覧を返す。
// GET /api/admin/reels?tab=all&sort=newest&q=xxx&page=1
func (h *LibraryHandler) ListReels(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	query := r.URL.Query()
	result, err := h.service.List(r.Context(), shop,
		query.Get("tab"),
		query.Get("sort"),
		query.Get("q"),
		cast.ToInt(query.Get("page")),
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, listReelsResponse{
		Reels:      toReelResponses(result.Reels),
		Total:      result.Total,
		Page:       result.Page,
		TotalPages: result.TotalPages,
	})
}

// reelIDFromRequest はURLパスパラメータからリールIDを取得する。
// 解析できない場合は400を書き込み、ok=falseを返す。
func reelIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewReelIDMissingError())
		return 0, false
	}
	return id, true
}

// toggleLiveRequest は公開状態変更のリクエストボディ。
type toggleLiveRequest struct {
	IsLive bool `json:"isLive"`
}

// ToggleLive はリールの公開状態を変更する。
// PATCH /api/admin/reels/{id}/live
func (h *LibraryHandler) ToggleLive(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	id, ok := reelIDFromRequest(w, r)
	if !ok {
		return
	}

	var req toggleLiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.ToggleLive(r.Context(), shop, id, req.IsLive); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "isLive": req.IsLive})
}

// linkProductRequest は商品リンク更新のリクエストボディ。
type linkProductRequest struct {
	ProductID     string `json:"productId"`
	VariantID     string `json:"variantId"`
	ProductHandle string `json:"productHandle"`
	ProductTitle  string `json:"productTitle"`
	ProductImage  string `json:"productImage"`
	Price         string `json:"price"`
	ComparePrice  string `json:"comparePrice"`
}

// LinkProduct はリールの商品リンクを更新する。
// PATCH /api/admin/reels/{id}/product
func (h *LibraryHandler) LinkProduct(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	id, ok := reelIDFromRequest(w, r)
	if !ok {
		return
	}

	var req linkProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.LinkProduct(r.Context(), shop, id, reel.ProductLink{
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		ProductHandle: req.ProductHandle,
		ProductTitle:  req.ProductTitle,
		ProductImage:  req.ProductImage,
		Price:         req.Price,
		ComparePrice:  req.ComparePrice,
	}); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true})
}

// updateStatsRequest は統計値更新のリクエストボディ。
// フォーム由来のため数値も文字列で送られてくる。
type updateStatsRequest struct {
	BoostViews any    `json:"boostViews"`
	Likes      any    `json:"likes"`
	Rating     string `json:"rating"`
}

// UpdateStats はリールの表示用統計値を更新する。
// PATCH /api/admin/reels/{id}/stats
func (h *LibraryHandler) UpdateStats(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	id, ok := reelIDFromRequest(w, r)
	if !ok {
		return
	}

	var req updateStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.UpdateStats(r.Context(), shop, id, reel.StatsUpdate{
		BoostViews: cast.ToString(req.BoostViews),
		Likes:      cast.ToString(req.Likes),
		Rating:     req.Rating,
	}); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true})
}

// DeleteReel はリールを削除する。
// DELETE /api/admin/reels/{id}
func (h *LibraryHandler) DeleteReel(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	id, ok := reelIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), shop, id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bulkIDsRequest は一括操作のリクエストボディ。
type bulkIDsRequest struct {
	IDs    []int64 `json:"ids"`
	IsLive bool    `json:"isLive"`
}

// BulkDelete は複数リールを一括削除する。
// POST /api/admin/reels/bulk/delete
func (h *LibraryHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req bulkIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if len(req.IDs) == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewReelIDMissingError())
		return
	}

	deleted, err := h.service.BulkDelete(r.Context(), shop, req.IDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "deleted": deleted})
}

// BulkSetLive は複数リールの公開状態を一括変更する。
// POST /api/admin/reels/bulk/status
func (h *LibraryHandler) BulkSetLive(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req bulkIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if len(req.IDs) == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewReelIDMissingError())
		return
	}

	updated, err := h.service.BulkSetLive(r.Context(), shop, req.IDs, req.IsLive)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}
