// Package storefront はストアフロントプロキシ向けのコンテンツ解決と
// エンゲージメント書き込みを提供する。
package storefront

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/repository"
)

// maxReels はストアフロントに返す公開中リールの最大件数。
const maxReels = 10

// Content はストアフロントウィジェットに返す1回分のペイロード。
type Content struct {
	// Reel は主表示リール。商品ページでは商品に紐づくリール、
	// 無ければ最新リール、それも無ければnil。
	Reel *model.Reel
	// Reels は公開中リールの新しい順のリスト（最大10件）。
	Reels []*model.Reel
	// Settings はショップの表示設定。未作成の場合は既定値（保存はしない）。
	Settings *model.AppSettings
}

// Resolver はストアフロント向けのコンテンツ解決とエンゲージメント更新を提供する。
type Resolver struct {
	reelRepo     repository.ReelRepository
	settingsRepo repository.SettingsRepository
	logger       *slog.Logger
}

// NewResolver はResolverを生成する。
func NewResolver(reelRepo repository.ReelRepository, settingsRepo repository.SettingsRepository, logger *slog.Logger) *Resolver {
	return &Resolver{reelRepo: reelRepo, settingsRepo: settingsRepo, logger: logger}
}

// Resolve はショップのストアフロントコンテンツを解決する。
// productIDが有効な場合は商品ページ文脈として扱い、主表示リールを
// 商品リール→最新リール→nilの順でフォールバックする。
// 設定行が未作成のショップには既定値を返す（DBへの書き込みは行わない）。
func (r *Resolver) Resolve(ctx context.Context, shop, productID string) (*Content, error) {
	if shop == "" {
		return nil, model.NewShopMissingError()
	}

	settings, err := r.settingsRepo.FindByShop(ctx, shop)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = model.DefaultAppSettings(shop)
	}

	reels, err := r.reelRepo.ListLive(ctx, shop, maxReels)
	if err != nil {
		return nil, err
	}

	content := &Content{Reels: reels, Settings: settings}
	if len(reels) > 0 {
		content.Reel = reels[0]
	}

	if isProductContext(productID) {
		productReel, err := r.reelRepo.FindLiveByProductID(ctx, shop, productID)
		if err != nil {
			return nil, err
		}
		if productReel != nil {
			content.Reel = productReel
		}
	}

	return content, nil
}

// isProductContext はproductIDが商品ページ文脈を示すかを返す。
// フロントエンドは商品以外のページで "null" や "undefined" を送ってくることがある。
func isProductContext(productID string) bool {
	switch productID {
	case "", "null", "undefined":
		return false
	default:
		return true
	}
}

// IncrementViews は視聴イベントを記録し、更新後の実視聴数を返す。
// 加算はSQL側でアトミックに行われる。
func (r *Resolver) IncrementViews(ctx context.Context, shop string, reelID int64) (int, error) {
	views, err := r.reelRepo.IncrementViews(ctx, shop, reelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.NewReelNotFoundError(reelID)
		}
		return 0, err
	}
	return views, nil
}

// LikeResult はいいね反転の結果。
type LikeResult struct {
	Likes int
	// Liked は反転後に訪問者がいいね済みかどうか。
	// 訪問者IDなしのレガシー経路ではクライアント申告の反転値。
	Liked bool
}

// ToggleLike はいいねを反転し、更新後のいいね数を返す。
// visitorIDが有効なUUIDの場合はサーバー側の記録に基づいて反転するため、
// 同一訪問者が何度送っても2重加算されない。
// visitorIDが無い場合はクライアント申告（clientClaimsLiked）に基づく
// レガシー経路で増減する。いずれの場合もいいね数は0未満にならない。
func (r *Resolver) ToggleLike(ctx context.Context, shop string, reelID int64, visitorID string, clientClaimsLiked bool) (*LikeResult, error) {
	if parsed, err := uuid.Parse(visitorID); visitorID != "" && err == nil {
		likes, liked, err := r.reelRepo.ToggleLikeByVisitor(ctx, shop, reelID, parsed.String())
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, model.NewReelNotFoundError(reelID)
			}
			return nil, fmt.Errorf("いいねの反転に失敗しました: %w", err)
		}
		return &LikeResult{Likes: likes, Liked: liked}, nil
	}

	if visitorID != "" {
		r.logger.Warn("訪問者IDがUUID形式でないためレガシー経路で処理します",
			slog.String("shop", shop),
			slog.Int64("reel_id", reelID),
		)
	}

	// レガシー経路: クライアントが現在いいね済みと申告していれば取り消し、そうでなければ加算
	delta := 1
	if clientClaimsLiked {
		delta = -1
	}
	likes, err := r.reelRepo.AdjustLikes(ctx, shop, reelID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewReelNotFoundError(reelID)
		}
		return nil, err
	}
	return &LikeResult{Likes: likes, Liked: !clientClaimsLiked}, nil
}
