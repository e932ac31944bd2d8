// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// reelResponse はリールのAPIレスポンス。
// viewsには実視聴数と上乗せ分の合計（表示用）を返し、内訳は別フィールドで返す。
type reelResponse struct {
	ID            int64  `json:"id"`
	InstagramID   string `json:"instagramId,omitempty"`
	VideoURL      string `json:"videoUrl"`
	Source        string `json:"source"`
	ProductID     string `json:"productId"`
	VariantID     string `json:"variantId"`
	ProductHandle string `json:"productHandle"`
	ProductTitle  string `json:"productTitle"`
	ProductImage  string `json:"productImage"`
	Price         string `json:"price"`
	ComparePrice  string `json:"comparePrice"`
	Views         int    `json:"views"`
	ActualViews   int    `json:"actualViews"`
	BoostViews    int    `json:"boostViews"`
	Likes         int    `json:"likes"`
	Rating        string `json:"rating"`
	IsLive        bool   `json:"isLive"`
	InstagramURL  string `json:"instagramUrl,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// settingsResponse はウィジェット表示設定のAPIレスポンス。
type settingsResponse struct {
	Shop                  string `json:"shop"`
	PrimaryColor          string `json:"primaryColor"`
	ButtonTextColor       string `json:"buttonTextColor"`
	ButtonText            string `json:"buttonText"`
	BorderRadius          int    `json:"borderRadius"`
	LayoutType            string `json:"layoutType"`
	EnableGradient        bool   `json:"enableGradient"`
	WidgetHeading         string `json:"widgetHeading"`
	CartAction            string `json:"cartAction"`
	AutoSync              bool   `json:"autoSync"`
	Autoplay              bool   `json:"autoplay"`
	ShowViews             bool   `json:"showViews"`
	ShowRating            bool   `json:"showRating"`
	FloatingPlayerVisible bool   `json:"floatingPlayerVisible"`
	DisplayLocation       string `json:"displayLocation"`
}

// toReelResponse はmodel.ReelからAPIレスポンスに変換する。
func toReelResponse(reel *model.Reel) reelResponse {
	return reelResponse{
		ID:            reel.ID,
		InstagramID:   reel.InstagramID,
		VideoURL:      reel.VideoURL,
		Source:        string(reel.Source),
		ProductID:     reel.ProductID,
		VariantID:     reel.VariantID,
		ProductHandle: reel.ProductHandle,
		ProductTitle:  reel.ProductTitle,
		ProductImage:  reel.ProductImage,
		Price:         decimalString(reel.Price.String(), reel.Price.IsZero()),
		ComparePrice:  decimalString(reel.ComparePrice.String(), reel.ComparePrice.IsZero()),
		Views:         reel.DisplayViews(),
		ActualViews:   reel.Views,
		BoostViews:    reel.BoostViews,
		Likes:         reel.Likes,
		Rating:        reel.Rating,
		IsLive:        reel.IsLive,
		InstagramURL:  reel.InstagramURL,
		CreatedAt:     reel.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     reel.UpdatedAt.Format(time.RFC3339),
	}
}

// toReelResponses はリールのスライスをAPIレスポンスに変換する。常に非nilのスライスを返す。
func toReelResponses(reels []*model.Reel) []reelResponse {
	results := make([]reelResponse, len(reels))
	for i, reel := range reels {
		results[i] = toReelResponse(reel)
	}
	return results
}

// decimalString は価格のレスポンス表現を返す。未設定（ゼロ値）は空文字列とする。
func decimalString(s string, isZero bool) string {
	if isZero {
		return ""
	}
	return s
}

// toSettingsResponse はmodel.AppSettingsからAPIレスポンスに変換する。
func toSettingsResponse(settings *model.AppSettings) settingsResponse {
	return settingsResponse{
		Shop:                  settings.Shop,
		PrimaryColor:          settings.PrimaryColor,
		ButtonTextColor:       settings.ButtonTextColor,
		ButtonText:            settings.ButtonText,
		BorderRadius:          settings.BorderRadius,
		LayoutType:            settings.LayoutType,
		EnableGradient:        settings.EnableGradient,
		WidgetHeading:         settings.WidgetHeading,
		CartAction:            settings.CartAction,
		AutoSync:              settings.AutoSync,
		Autoplay:              settings.Autoplay,
		ShowViews:             settings.ShowViews,
		ShowRating:            settings.ShowRating,
		FloatingPlayerVisible: settings.FloatingPlayerVisible,
		DisplayLocation:       settings.DisplayLocation,
	}
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSONResponse(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequestBody はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// writeUnauthorized は未認証レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "アプリを再読み込みしてください。",
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeInternalError(w)
}

// writeInternalError は内部エラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func writeInternalError(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeShopMissing,
		model.ErrCodeReelIDMissing,
		model.ErrCodeInvalidIntent,
		model.ErrCodeInvalidSettings,
		model.ErrCodeInvalidUploadInput,
		model.ErrCodeIncompletePublish:
		return http.StatusBadRequest
	case model.ErrCodeReelNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnsafeMediaURL:
		return http.StatusForbidden
	case model.ErrCodeWebhookVerify:
		return http.StatusUnauthorized
	case model.ErrCodeInstagramToken:
		return http.StatusPreconditionFailed
	case model.ErrCodeUploadInitFailed, model.ErrCodeInstagramAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
