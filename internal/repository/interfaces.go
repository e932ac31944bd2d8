// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
)

// ReelListParams は管理画面一覧の検索条件。
type ReelListParams struct {
	Shop   string
	Filter model.ReelFilter
	Sort   model.ReelSort
	Search string // タイトル・ハンドルの部分一致。空なら全件。
	Page   int    // 1始まり
	Limit  int
}

// ReelRepository はリールデータの永続化インターフェース。
// 全メソッドはショップドメインでスコープされ、他テナントの行には一切触れない。
type ReelRepository interface {
	// Create はリールを作成し、採番されたIDと作成日時を反映して返す。
	Create(ctx context.Context, reel *model.Reel) error

	// FindByID は指定ショップ・指定IDのリールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, shop string, id int64) (*model.Reel, error)

	// ListLive は公開中のリールを作成日時の降順で最大limit件返す。
	ListLive(ctx context.Context, shop string, limit int) ([]*model.Reel, error)

	// FindLiveByProductID は指定商品に紐づく公開中のリールを1件返す。見つからない場合はnilを返す。
	FindLiveByProductID(ctx context.Context, shop, productID string) (*model.Reel, error)

	// List は管理画面一覧をフィルタ・ソート・検索・ページ指定で取得し、総件数も返す。
	List(ctx context.Context, params ReelListParams) ([]*model.Reel, int, error)

	// UpsertByInstagramID はinstagram_idをキーに冪等にUPSERTする。
	// 既存行がある場合はvideo_url、instagram_url、タイトルのみ更新し、
	// エンゲージメント数値と公開状態は維持する。
	UpsertByInstagramID(ctx context.Context, reel *model.Reel) error

	// SetLive は公開状態を更新する。対象が存在しない場合はsql.ErrNoRowsを返す。
	SetLive(ctx context.Context, shop string, id int64, isLive bool) error

	// SetProduct は商品リンクを更新する。reelの商品関連フィールドをそのまま書き込む。
	SetProduct(ctx context.Context, shop string, id int64, reel *model.Reel) error

	// UpdateStats はboost_views、likes、ratingを管理画面の値で上書きする。
	UpdateStats(ctx context.Context, shop string, id int64, boostViews, likes int, rating string) error

	// IncrementViews は実視聴数をアトミックに+1し、更新後の値を返す。
	IncrementViews(ctx context.Context, shop string, id int64) (int, error)

	// AdjustLikes はいいね数をアトミックにdelta分増減し、更新後の値を返す。
	// 0未満にはならない。
	AdjustLikes(ctx context.Context, shop string, id int64, delta int) (int, error)

	// ToggleLikeByVisitor は訪問者のいいねを同一トランザクションで反転し、
	// 更新後のいいね数と反転後の状態を返す。
	// 記録が無ければ記録して+1、あれば取り消して-1する。
	// 対象リールが存在しない場合はsql.ErrNoRowsを返す。
	ToggleLikeByVisitor(ctx context.Context, shop string, id int64, visitorID string) (likes int, liked bool, err error)

	// Delete は指定ショップ・指定IDのリールを削除する。
	Delete(ctx context.Context, shop string, id int64) error

	// DeleteBulk は複数IDを一括削除し、削除件数を返す。
	DeleteBulk(ctx context.Context, shop string, ids []int64) (int, error)

	// SetLiveBulk は複数IDの公開状態を一括更新し、更新件数を返す。
	SetLiveBulk(ctx context.Context, shop string, ids []int64, isLive bool) (int, error)

	// DeleteByShop はショップの全リールを削除する（アンインストール時）。
	DeleteByShop(ctx context.Context, shop string) error
}

// SettingsRepository はショップ設定の永続化インターフェース。
type SettingsRepository interface {
	// FindByShop は指定ショップの設定を取得する。見つからない場合はnilを返す。
	FindByShop(ctx context.Context, shop string) (*model.AppSettings, error)

	// Upsert は設定行を丸ごとUPSERTする。
	Upsert(ctx context.Context, settings *model.AppSettings) error

	// Update は部分更新を適用し、更新後の設定を返す。
	// 設定行が未作成の場合は既定値で作成してから適用する。
	Update(ctx context.Context, shop string, update *model.AppSettingsUpdate) (*model.AppSettings, error)

	// ListAutoSyncShops はauto_syncが有効なショップのドメイン一覧を返す。
	ListAutoSyncShops(ctx context.Context) ([]string, error)

	// DeleteByShop はショップの設定を削除する（アンインストール時）。
	DeleteByShop(ctx context.Context, shop string) error
}

// SessionRepository はShopifyセッションの永続化インターフェース。
type SessionRepository interface {
	// Upsert はセッションをIDをキーにUPSERTする。
	Upsert(ctx context.Context, session *model.Session) error

	// FindByShop は指定ショップのオフラインセッションを取得する。見つからない場合はnilを返す。
	FindByShop(ctx context.Context, shop string) (*model.Session, error)

	// DeleteByShop はショップの全セッションを削除する（アンインストール時）。
	DeleteByShop(ctx context.Context, shop string) error
}
