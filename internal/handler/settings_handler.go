package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/middleware"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
)

// SettingsServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type SettingsServiceInterface interface {
	// Get はショップの設定を返す。未作成の場合は既定値で作成する。
	Get(ctx context.Context, shop string) (*model.AppSettings, error)
	// Update は部分更新を適用し、更新後の設定を返す。
	Update(ctx context.Context, shop string, update *model.AppSettingsUpdate) (*model.AppSettings, error)
}

// SettingsHandler はウィジェット設定のHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetSettings はショップの設定を返す。
// GET /api/admin/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	settings, err := h.service.Get(r.Context(), shop)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toSettingsResponse(settings))
}

// updateSettingsRequest は設定更新のリクエストボディ。
// nilのフィールドは変更しない（フォームに含まれたキーのみ更新する）。
type updateSettingsRequest struct {
	PrimaryColor          *string `json:"primaryColor"`
	ButtonTextColor       *string `json:"buttonTextColor"`
	ButtonText            *string `json:"buttonText"`
	BorderRadius          *int    `json:"borderRadius"`
	LayoutType            *string `json:"layoutType"`
	EnableGradient        *bool   `json:"enableGradient"`
	WidgetHeading         *string `json:"widgetHeading"`
	CartAction            *string `json:"cartAction"`
	AutoSync              *bool   `json:"autoSync"`
	Autoplay              *bool   `json:"autoplay"`
	ShowViews             *bool   `json:"showViews"`
	ShowRating            *bool   `json:"showRating"`
	FloatingPlayerVisible *bool   `json:"floatingPlayerVisible"`
	DisplayLocation       *string `json:"displayLocation"`
}

// UpdateSettings はショップの設定を部分更新する。
// PUT /api/admin/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	update := &model.AppSettingsUpdate{
		PrimaryColor:          req.PrimaryColor,
		ButtonTextColor:       req.ButtonTextColor,
		ButtonText:            req.ButtonText,
		BorderRadius:          req.BorderRadius,
		LayoutType:            req.LayoutType,
		EnableGradient:        req.EnableGradient,
		WidgetHeading:         req.WidgetHeading,
		CartAction:            req.CartAction,
		AutoSync:              req.AutoSync,
		Autoplay:              req.Autoplay,
		ShowViews:             req.ShowViews,
		ShowRating:            req.ShowRating,
		FloatingPlayerVisible: req.FloatingPlayerVisible,
		DisplayLocation:       req.DisplayLocation,
	}
	if update.IsEmpty() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidSettingsError("更新対象のフィールドがありません"))
		return
	}

	settings, err := h.service.Update(r.Context(), shop, update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toSettingsResponse(settings))
}
