// Package reel はリールの公開パイプラインと管理操作を提供する。
package reel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/repository"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/shopify"
)

// manualRating は手動アップロードリールの初期レーティング。
const manualRating = "5.0"

// PublishInput は手動アップロードの公開入力。
// VideoURLはステージドアップロード完了後のリソースURL。
type PublishInput struct {
	VideoURL      string
	ProductID     string
	VariantID     string
	ProductHandle string
	ProductTitle  string
	ProductImage  string
	Price         string
	ComparePrice  string
}

// VideoFileRegistrar はステージ済みリソースのファイル登録インターフェース。
type VideoFileRegistrar interface {
	// CreateVideo はリソースURLからVideoファイルを登録し、ファイルIDを返す。
	CreateVideo(ctx context.Context, session *model.Session, alt, resourceURL string) (string, error)
}

// PublishPipeline は手動アップロード動画の公開パイプライン。
// ファイル登録、処理済みURLの解決、リールの保存を順に行う。
type PublishPipeline struct {
	registrar VideoFileRegistrar
	resolver  shopify.ProcessedURLResolver
	reelRepo  repository.ReelRepository
	logger    *slog.Logger
}

// NewPublishPipeline はPublishPipelineを生成する。
func NewPublishPipeline(
	registrar VideoFileRegistrar,
	resolver shopify.ProcessedURLResolver,
	reelRepo repository.ReelRepository,
	logger *slog.Logger,
) *PublishPipeline {
	return &PublishPipeline{
		registrar: registrar,
		resolver:  resolver,
		reelRepo:  reelRepo,
		logger:    logger,
	}
}

// Publish は手動アップロード動画をリールとして公開する。
// VideoURLまたは商品選択が不完全な場合は保存前に拒否する。
// ファイル登録や処理待ちの失敗は公開を止めず、解決できたURL（最悪は元URL）で保存する。
// エンゲージメント初期値は視聴0・上乗せ0・いいね0・レーティング5.0で固定。
func (p *PublishPipeline) Publish(ctx context.Context, session *model.Session, input PublishInput) (*model.Reel, error) {
	if input.VideoURL == "" {
		return nil, model.NewIncompletePublishError("videoUrlは必須です")
	}
	if err := validateProductSelection(input); err != nil {
		return nil, err
	}

	finalURL := input.VideoURL
	fileID, err := p.registrar.CreateVideo(ctx, session, input.ProductTitle, input.VideoURL)
	if err != nil {
		// ファイル登録の失敗は警告に留め、元URLで保存を続行する
		p.logger.Warn("動画ファイルの登録に失敗したため元URLで保存します",
			slog.String("shop", session.Shop),
			slog.String("error", err.Error()),
		)
	} else if fileID != "" {
		finalURL, err = p.resolver.Resolve(ctx, session, fileID, input.VideoURL)
		if err != nil {
			return nil, fmt.Errorf("動画処理URLの解決に失敗しました: %w", err)
		}
	}

	reel := &model.Reel{
		Shop:          session.Shop,
		VideoURL:      finalURL,
		Source:        model.SourceManual,
		ProductID:     normalizeProductField(input.ProductID),
		VariantID:     normalizeProductField(input.VariantID),
		ProductHandle: normalizeProductField(input.ProductHandle),
		ProductTitle:  normalizeProductField(input.ProductTitle),
		ProductImage:  normalizeProductField(input.ProductImage),
		Price:         parsePrice(input.Price),
		ComparePrice:  parsePrice(input.ComparePrice),
		Views:         0,
		BoostViews:    0,
		Likes:         0,
		Rating:        manualRating,
		IsLive:        true,
	}

	if err := p.reelRepo.Create(ctx, reel); err != nil {
		return nil, fmt.Errorf("リールの保存に失敗しました: %w", err)
	}

	p.logger.Info("リールを公開しました",
		slog.String("shop", session.Shop),
		slog.Int64("reel_id", reel.ID),
		slog.Bool("has_product", reel.HasProduct()),
	)
	return reel, nil
}

// validateProductSelection は商品選択が完全かを検証する。
// 商品ピッカーが埋める項目（ID・バリアント・ハンドル・タイトル・画像）と正の価格が
// すべて揃っていない公開は拒否する。compare_atは商品によって存在しないため必須にしない。
func validateProductSelection(input PublishInput) error {
	fields := []struct {
		name  string
		value string
	}{
		{"productId", input.ProductID},
		{"variantId", input.VariantID},
		{"productHandle", input.ProductHandle},
		{"productTitle", input.ProductTitle},
		{"productImage", input.ProductImage},
	}
	for _, f := range fields {
		if normalizeProductField(f.value) == "" {
			return model.NewIncompletePublishError(fmt.Sprintf("%sは必須です", f.name))
		}
	}
	if !parsePrice(input.Price).IsPositive() {
		return model.NewIncompletePublishError("priceは必須です")
	}
	return nil
}

// normalizeProductField はフロントエンド由来の欠損表現を空文字列に正規化する。
// 商品未選択のフォームは "null" や "undefined" という文字列を送ってくることがある。
func normalizeProductField(value string) string {
	switch value {
	case "", "null", "undefined":
		return ""
	default:
		return value
	}
}

// parsePrice は価格文字列をdecimalに変換する。空や不正な値はゼロとして扱う。
func parsePrice(value string) decimal.Decimal {
	value = normalizeProductField(value)
	if value == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return price
}
