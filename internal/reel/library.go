package reel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cast"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/repository"
)

// pageSize は管理画面一覧の1ページあたりの件数。
const pageSize = 12

// LibraryService は管理画面のリールライブラリ操作を提供する。
type LibraryService struct {
	reelRepo repository.ReelRepository
	logger   *slog.Logger
}

// NewLibraryService はLibraryServiceを生成する。
func NewLibraryService(reelRepo repository.ReelRepository, logger *slog.Logger) *LibraryService {
	return &LibraryService{reelRepo: reelRepo, logger: logger}
}

// ListResult は一覧取得の結果。
type ListResult struct {
	Reels      []*model.Reel
	Total      int
	Page       int
	TotalPages int
}

// List は一覧をタブフィルタ・ソート・検索・ページ指定で取得する。
// 未知のフィルタ・ソート値は既定値（all / newest）に落とす。
func (s *LibraryService) List(ctx context.Context, shop, filter, sort, search string, page int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}

	reels, total, err := s.reelRepo.List(ctx, repository.ReelListParams{
		Shop:   shop,
		Filter: model.ParseReelFilter(filter),
		Sort:   model.ParseReelSort(sort),
		Search: search,
		Page:   page,
		Limit:  pageSize,
	})
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return &ListResult{Reels: reels, Total: total, Page: page, TotalPages: totalPages}, nil
}

// ToggleLive はリールの公開状態を更新する。
func (s *LibraryService) ToggleLive(ctx context.Context, shop string, id int64, isLive bool) error {
	if err := s.reelRepo.SetLive(ctx, shop, id, isLive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NewReelNotFoundError(id)
		}
		return err
	}
	s.logger.Info("リールの公開状態を変更しました",
		slog.String("shop", shop),
		slog.Int64("reel_id", id),
		slog.Bool("is_live", isLive),
	)
	return nil
}

// ProductLink は商品リンクの更新入力。
type ProductLink struct {
	ProductID     string
	VariantID     string
	ProductHandle string
	ProductTitle  string
	ProductImage  string
	Price         string
	ComparePrice  string
}

// LinkProduct はリールに商品リンクを設定する。全項目空の入力はリンク解除として扱う。
func (s *LibraryService) LinkProduct(ctx context.Context, shop string, id int64, link ProductLink) error {
	reel := &model.Reel{
		ProductID:     normalizeProductField(link.ProductID),
		VariantID:     normalizeProductField(link.VariantID),
		ProductHandle: normalizeProductField(link.ProductHandle),
		ProductTitle:  normalizeProductField(link.ProductTitle),
		ProductImage:  normalizeProductField(link.ProductImage),
		Price:         parsePrice(link.Price),
		ComparePrice:  parsePrice(link.ComparePrice),
	}

	if err := s.reelRepo.SetProduct(ctx, shop, id, reel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NewReelNotFoundError(id)
		}
		return err
	}
	s.logger.Info("リールの商品リンクを更新しました",
		slog.String("shop", shop),
		slog.Int64("reel_id", id),
		slog.String("product_id", reel.ProductID),
	)
	return nil
}

// StatsUpdate は統計値の更新入力。フォーム由来のため値は文字列で受ける。
type StatsUpdate struct {
	BoostViews string
	Likes      string
	Rating     string
}

// UpdateStats は上乗せ視聴数・いいね数・レーティングを上書きする。
// 数値に変換できない値は0として扱う。実視聴数（views）はここでは変更できない。
func (s *LibraryService) UpdateStats(ctx context.Context, shop string, id int64, update StatsUpdate) error {
	boostViews := cast.ToInt(update.BoostViews)
	likes := cast.ToInt(update.Likes)
	if boostViews < 0 {
		boostViews = 0
	}
	if likes < 0 {
		likes = 0
	}
	rating := update.Rating
	if rating == "" {
		rating = manualRating
	}

	if err := s.reelRepo.UpdateStats(ctx, shop, id, boostViews, likes, rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NewReelNotFoundError(id)
		}
		return err
	}
	return nil
}

// Delete はリールを削除する。
func (s *LibraryService) Delete(ctx context.Context, shop string, id int64) error {
	if err := s.reelRepo.Delete(ctx, shop, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NewReelNotFoundError(id)
		}
		return err
	}
	s.logger.Info("リールを削除しました",
		slog.String("shop", shop),
		slog.Int64("reel_id", id),
	)
	return nil
}

// BulkDelete は複数リールを一括削除し、削除件数を返す。
func (s *LibraryService) BulkDelete(ctx context.Context, shop string, ids []int64) (int, error) {
	deleted, err := s.reelRepo.DeleteBulk(ctx, shop, ids)
	if err != nil {
		return 0, fmt.Errorf("リールの一括削除に失敗しました: %w", err)
	}
	s.logger.Info("リールを一括削除しました",
		slog.String("shop", shop),
		slog.Int("requested", len(ids)),
		slog.Int("deleted", deleted),
	)
	return deleted, nil
}

// BulkSetLive は複数リールの公開状態を一括更新し、更新件数を返す。
func (s *LibraryService) BulkSetLive(ctx context.Context, shop string, ids []int64, isLive bool) (int, error) {
	updated, err := s.reelRepo.SetLiveBulk(ctx, shop, ids, isLive)
	if err != nil {
		return 0, fmt.Errorf("公開状態の一括更新に失敗しました: %w", err)
	}
	s.logger.Info("リールの公開状態を一括更新しました",
		slog.String("shop", shop),
		slog.Int("requested", len(ids)),
		slog.Int("updated", updated),
		slog.Bool("is_live", isLive),
	)
	return updated, nil
}
