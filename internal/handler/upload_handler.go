package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/spf13/cast"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/metrics"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/middleware"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/reel"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/shopify"
)

// SessionProvider はショップのオフラインセッションを取得するインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionProvider interface {
	FindByShop(ctx context.Context, shop string) (*model.Session, error)
}

// StagedUploadServiceInterface はアップロードハンドラーが必要とするサービスインターフェース。
type StagedUploadServiceInterface interface {
	CreateTarget(ctx context.Context, session *model.Session, input shopify.StagedUploadInput) (*shopify.StagedTarget, error)
}

// PublishServiceInterface はリール公開のサービスインターフェース。
type PublishServiceInterface interface {
	Publish(ctx context.Context, session *model.Session, input reel.PublishInput) (*model.Reel, error)
}

// UploadHandler は動画アップロードとリール公開のHTTPハンドラー。
type UploadHandler struct {
	sessions  SessionProvider
	broker    StagedUploadServiceInterface
	publisher PublishServiceInterface
	collector metrics.MetricsCollector
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(sessions SessionProvider, broker StagedUploadServiceInterface, publisher PublishServiceInterface, collector metrics.MetricsCollector) *UploadHandler {
	return &UploadHandler{
		sessions:  sessions,
		broker:    broker,
		publisher: publisher,
		collector: collector,
	}
}

// sessionForRequest は認証済みリクエストのショップに対応するオフラインセッションを取得する。
// セッションが無い（アプリ未インストール）場合は401を書き込みnilを返す。
func (h *UploadHandler) sessionForRequest(w http.ResponseWriter, r *http.Request) *model.Session {
	shop, err := middleware.ShopFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return nil
	}

	session, err := h.sessions.FindByShop(r.Context(), shop)
	if err != nil {
		handleServiceError(w, err)
		return nil
	}
	if session == nil {
		slog.Warn("オフラインセッションが見つかりません", slog.String("shop", shop))
		writeUnauthorized(w)
		return nil
	}
	return session
}

// stagedUploadRequest はステージドアップロード要求のリクエストボディ。
// fileSizeはフロントエンドにより数値でも文字列でも送られてくる。
type stagedUploadRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	FileSize any    `json:"fileSize"`
}

// CreateStagedUpload は動画のアップロード先を発行する。
// POST /api/admin/uploads/staged
func (h *UploadHandler) CreateStagedUpload(w http.ResponseWriter, r *http.Request) {
	session := h.sessionForRequest(w, r)
	if session == nil {
		return
	}

	var req stagedUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	target, err := h.broker.CreateTarget(r.Context(), session, shopify.StagedUploadInput{
		Filename: req.Filename,
		MimeType: req.MimeType,
		FileSize: cast.ToInt64(req.FileSize),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, target)
}

// publishReelRequest はリール公開のリクエストボディ。
type publishReelRequest struct {
	VideoURL      string `json:"videoUrl"`
	ProductID     string `json:"productId"`
	VariantID     string `json:"variantId"`
	ProductHandle string `json:"productHandle"`
	ProductTitle  string `json:"productTitle"`
	ProductImage  string `json:"productImage"`
	Price         string `json:"price"`
	ComparePrice  string `json:"comparePrice"`
}

// PublishReel はアップロード済み動画をリールとして公開する。
// POST /api/admin/reels
func (h *UploadHandler) PublishReel(w http.ResponseWriter, r *http.Request) {
	session := h.sessionForRequest(w, r)
	if session == nil {
		return
	}

	var req publishReelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	published, err := h.publisher.Publish(r.Context(), session, reel.PublishInput{
		VideoURL:      req.VideoURL,
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		ProductHandle: req.ProductHandle,
		ProductTitle:  req.ProductTitle,
		ProductImage:  req.ProductImage,
		Price:         req.Price,
		ComparePrice:  req.ComparePrice,
	})
	if err != nil {
		h.collector.RecordPublishFailure()
		handleServiceError(w, err)
		return
	}

	h.collector.RecordPublish(published.VideoURL != req.VideoURL)
	writeJSONResponse(w, http.StatusCreated, toReelResponse(published))
}
