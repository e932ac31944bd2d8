// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reel はストアフロントに表示する1本のリール（動画＋商品リンク）を表す。
// すべてのリールはショップドメイン（テナントキー）に帰属する。
type Reel struct {
	ID          int64
	Shop        string
	InstagramID string // Instagram同期リールのみ。手動アップロードは空。
	VideoURL    string
	Source      ReelSource

	// 商品リンク（任意。実運用上は全項目セットか全項目空のどちらか）
	ProductID     string
	VariantID     string
	ProductHandle string
	ProductTitle  string
	ProductImage  string
	Price         decimal.Decimal
	ComparePrice  decimal.Decimal

	// エンゲージメント
	Views      int    // 実視聴数。ストアフロントのviewイベントでのみ増加する。
	BoostViews int    // 表示用の上乗せ視聴数。管理画面からのみ設定される。
	Likes      int
	Rating     string // 表示専用の文字列（例: "4.8"）

	IsLive       bool
	InstagramURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReelSource はリールの取り込み元を表す。
type ReelSource string

const (
	// SourceManual は管理画面からの手動アップロード。
	SourceManual ReelSource = "manual"
	// SourceInstagram はInstagram同期による取り込み。
	SourceInstagram ReelSource = "instagram"
)

// DisplayViews はストアフロントに表示する視聴数を返す。
// 実視聴数と上乗せ分の合計を読み取り時に算出する。保存はしない。
func (r *Reel) DisplayViews() int {
	return r.Views + r.BoostViews
}

// HasProduct は商品リンクが設定されているかを返す。
func (r *Reel) HasProduct() bool {
	return r.ProductID != ""
}

// ReelFilter は管理画面一覧のタブフィルタを表す。
type ReelFilter string

const (
	// ReelFilterAll は全件。
	ReelFilterAll ReelFilter = "all"
	// ReelFilterLive は公開中のみ。
	ReelFilterLive ReelFilter = "live"
	// ReelFilterHidden は非公開のみ。
	ReelFilterHidden ReelFilter = "hidden"
	// ReelFilterInstagram はInstagram同期のみ。
	ReelFilterInstagram ReelFilter = "instagram"
	// ReelFilterManual は手動アップロードのみ。
	ReelFilterManual ReelFilter = "manual"
)

// ParseReelFilter は文字列をReelFilterに変換する。未知の値はallとして扱う。
func ParseReelFilter(s string) ReelFilter {
	switch ReelFilter(s) {
	case ReelFilterLive, ReelFilterHidden, ReelFilterInstagram, ReelFilterManual:
		return ReelFilter(s)
	default:
		return ReelFilterAll
	}
}

// ReelSort は管理画面一覧のソート順を表す。
type ReelSort string

const (
	// ReelSortNewest は作成日時の降順。
	ReelSortNewest ReelSort = "newest"
	// ReelSortOldest は作成日時の昇順。
	ReelSortOldest ReelSort = "oldest"
	// ReelSortViewsDesc は実視聴数の降順。
	ReelSortViewsDesc ReelSort = "views_desc"
	// ReelSortLikesDesc はいいね数の降順。
	ReelSortLikesDesc ReelSort = "likes_desc"
)

// ParseReelSort は文字列をReelSortに変換する。未知の値はnewestとして扱う。
func ParseReelSort(s string) ReelSort {
	switch ReelSort(s) {
	case ReelSortOldest, ReelSortViewsDesc, ReelSortLikesDesc:
		return ReelSort(s)
	default:
		return ReelSortNewest
	}
}
