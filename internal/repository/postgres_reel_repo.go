package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
)

// reelColumns はSELECT句で使用する列リスト。scanReelの順序と一致させること。
const reelColumns = `id, shop, instagram_id, video_url, source,
	       product_id, variant_id, product_handle, product_title, product_image,
	       price, compare_price, views, boost_views, likes, rating,
	       is_live, instagram_url, created_at, updated_at`

// PostgresReelRepo はPostgreSQLを使用したリールリポジトリ。
type PostgresReelRepo struct {
	db *sql.DB
}

// NewPostgresReelRepo はPostgresReelRepoを生成する。
func NewPostgresReelRepo(db *sql.DB) *PostgresReelRepo {
	return &PostgresReelRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReel(row rowScanner) (*model.Reel, error) {
	reel := &model.Reel{}
	var instagramID, productID, variantID, productHandle, productTitle, productImage, instagramURL sql.NullString
	var price, comparePrice decimal.NullDecimal

	err := row.Scan(
		&reel.ID, &reel.Shop, &instagramID, &reel.VideoURL, &reel.Source,
		&productID, &variantID, &productHandle, &productTitle, &productImage,
		&price, &comparePrice, &reel.Views, &reel.BoostViews, &reel.Likes, &reel.Rating,
		&reel.IsLive, &instagramURL, &reel.CreatedAt, &reel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	reel.InstagramID = nullStringValue(instagramID)
	reel.ProductID = nullStringValue(productID)
	reel.VariantID = nullStringValue(variantID)
	reel.ProductHandle = nullStringValue(productHandle)
	reel.ProductTitle = nullStringValue(productTitle)
	reel.ProductImage = nullStringValue(productImage)
	reel.InstagramURL = nullStringValue(instagramURL)
	if price.Valid {
		reel.Price = price.Decimal
	}
	if comparePrice.Valid {
		reel.ComparePrice = comparePrice.Decimal
	}

	return reel, nil
}

// Create はリールを作成し、採番されたIDと作成日時を反映して返す。
func (r *PostgresReelRepo) Create(ctx context.Context, reel *model.Reel) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reels (shop, instagram_id, video_url, source,
		                    product_id, variant_id, product_handle, product_title, product_image,
		                    price, compare_price, views, boost_views, likes, rating,
		                    is_live, instagram_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id, created_at, updated_at`,
		reel.Shop, nullString(reel.InstagramID), reel.VideoURL, reel.Source,
		nullString(reel.ProductID), nullString(reel.VariantID),
		nullString(reel.ProductHandle), nullString(reel.ProductTitle), nullString(reel.ProductImage),
		nullDecimal(reel.Price), nullDecimal(reel.ComparePrice),
		reel.Views, reel.BoostViews, reel.Likes, reel.Rating,
		reel.IsLive, nullString(reel.InstagramURL),
	).Scan(&reel.ID, &reel.CreatedAt, &reel.UpdatedAt)
	if err != nil {
		return fmt.Errorf("リールの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定ショップ・指定IDのリールを取得する。見つからない場合はnilを返す。
func (r *PostgresReelRepo) FindByID(ctx context.Context, shop string, id int64) (*model.Reel, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reelColumns+` FROM reels WHERE shop = $1 AND id = $2`,
		shop, id,
	)
	reel, err := scanReel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リールの取得に失敗しました: %w", err)
	}
	return reel, nil
}

// ListLive は公開中のリールを作成日時の降順で最大limit件返す。
func (r *PostgresReelRepo) ListLive(ctx context.Context, shop string, limit int) ([]*model.Reel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reelColumns+` FROM reels
		 WHERE shop = $1 AND is_live = TRUE
		 ORDER BY created_at DESC
		 LIMIT $2`,
		shop, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("公開中リールの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var reels []*model.Reel
	for rows.Next() {
		reel, err := scanReel(rows)
		if err != nil {
			return nil, fmt.Errorf("公開中リールの読み取りに失敗しました: %w", err)
		}
		reels = append(reels, reel)
	}
	return reels, rows.Err()
}

// FindLiveByProductID は指定商品に紐づく公開中のリールを1件返す。見つからない場合はnilを返す。
func (r *PostgresReelRepo) FindLiveByProductID(ctx context.Context, shop, productID string) (*model.Reel, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reelColumns+` FROM reels
		 WHERE shop = $1 AND product_id = $2 AND is_live = TRUE
		 ORDER BY created_at DESC
		 LIMIT 1`,
		shop, productID,
	)
	reel, err := scanReel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品リールの取得に失敗しました: %w", err)
	}
	return reel, nil
}

// List は管理画面一覧をフィルタ・ソート・検索・ページ指定で取得し、総件数も返す。
func (r *PostgresReelRepo) List(ctx context.Context, params ReelListParams) ([]*model.Reel, int, error) {
	conditions := []string{"shop = $1"}
	args := []any{params.Shop}

	switch params.Filter {
	case model.ReelFilterLive:
		conditions = append(conditions, "is_live = TRUE")
	case model.ReelFilterHidden:
		conditions = append(conditions, "is_live = FALSE")
	case model.ReelFilterInstagram:
		conditions = append(conditions, "source = 'instagram'")
	case model.ReelFilterManual:
		conditions = append(conditions, "source = 'manual'")
	}

	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(product_title ILIKE $%d OR product_handle ILIKE $%d)", n, n))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reels WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("リール件数の取得に失敗しました: %w", err)
	}

	var orderBy string
	switch params.Sort {
	case model.ReelSortOldest:
		orderBy = "created_at ASC"
	case model.ReelSortViewsDesc:
		orderBy = "views + boost_views DESC, created_at DESC"
	case model.ReelSortLikesDesc:
		orderBy = "likes DESC, created_at DESC"
	default:
		orderBy = "created_at DESC"
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	args = append(args, params.Limit, (page-1)*params.Limit)
	query := fmt.Sprintf(`SELECT %s FROM reels WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		reelColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("リール一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var reels []*model.Reel
	for rows.Next() {
		reel, err := scanReel(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("リール一覧の読み取りに失敗しました: %w", err)
		}
		reels = append(reels, reel)
	}
	return reels, total, rows.Err()
}

// UpsertByInstagramID はinstagram_idをキーに冪等にUPSERTする。
func (r *PostgresReelRepo) UpsertByInstagramID(ctx context.Context, reel *model.Reel) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reels (shop, instagram_id, video_url, source,
		                    product_title, product_image, views, boost_views, likes, rating,
		                    is_live, instagram_url)
		 VALUES ($1, $2, $3, 'instagram', $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (shop, instagram_id) WHERE instagram_id IS NOT NULL
		 DO UPDATE SET
		    video_url = EXCLUDED.video_url,
		    product_image = EXCLUDED.product_image,
		    instagram_url = EXCLUDED.instagram_url,
		    product_title = COALESCE(NULLIF(reels.product_title, ''), EXCLUDED.product_title),
		    updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		reel.Shop, reel.InstagramID, reel.VideoURL,
		nullString(reel.ProductTitle), nullString(reel.ProductImage),
		reel.Views, reel.BoostViews, reel.Likes, reel.Rating,
		reel.IsLive, nullString(reel.InstagramURL),
	).Scan(&reel.ID, &reel.CreatedAt, &reel.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Instagramリールのupsertに失敗しました: %w", err)
	}
	return nil
}

// SetLive は公開状態を更新する。対象が存在しない場合はsql.ErrNoRowsを返す。
func (r *PostgresReelRepo) SetLive(ctx context.Context, shop string, id int64, isLive bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reels SET is_live = $3, updated_at = NOW() WHERE shop = $1 AND id = $2`,
		shop, id, isLive,
	)
	if err != nil {
		return fmt.Errorf("公開状態の更新に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("公開状態の更新結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetProduct は商品リンクを更新する。
func (r *PostgresReelRepo) SetProduct(ctx context.Context, shop string, id int64, reel *model.Reel) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reels SET
		    product_id = $3, variant_id = $4, product_handle = $5,
		    product_title = $6, product_image = $7, price = $8, compare_price = $9,
		    updated_at = NOW()
		 WHERE shop = $1 AND id = $2`,
		shop, id,
		nullString(reel.ProductID), nullString(reel.VariantID), nullString(reel.ProductHandle),
		nullString(reel.ProductTitle), nullString(reel.ProductImage),
		nullDecimal(reel.Price), nullDecimal(reel.ComparePrice),
	)
	if err != nil {
		return fmt.Errorf("商品リンクの更新に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("商品リンクの更新結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStats はboost_views、likes、ratingを管理画面の値で上書きする。
func (r *PostgresReelRepo) UpdateStats(ctx context.Context, shop string, id int64, boostViews, likes int, rating string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reels SET boost_views = $3, likes = $4, rating = $5, updated_at = NOW()
		 WHERE shop = $1 AND id = $2`,
		shop, id, boostViews, likes, rating,
	)
	if err != nil {
		return fmt.Errorf("統計値の更新に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("統計値の更新結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IncrementViews は実視聴数をアトミックに+1し、更新後の値を返す。
func (r *PostgresReelRepo) IncrementViews(ctx context.Context, shop string, id int64) (int, error) {
	var views int
	err := r.db.QueryRowContext(ctx,
		`UPDATE reels SET views = views + 1, updated_at = NOW()
		 WHERE shop = $1 AND id = $2
		 RETURNING views`,
		shop, id,
	).Scan(&views)
	if err == sql.ErrNoRows {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("視聴数の加算に失敗しました: %w", err)
	}
	return views, nil
}

// AdjustLikes はいいね数をアトミックにdelta分増減し、更新後の値を返す。
func (r *PostgresReelRepo) AdjustLikes(ctx context.Context, shop string, id int64, delta int) (int, error) {
	var likes int
	err := r.db.QueryRowContext(ctx,
		`UPDATE reels SET likes = GREATEST(likes + $3, 0), updated_at = NOW()
		 WHERE shop = $1 AND id = $2
		 RETURNING likes`,
		shop, id, delta,
	).Scan(&likes)
	if err == sql.ErrNoRows {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("いいね数の更新に失敗しました: %w", err)
	}
	return likes, nil
}

// ToggleLikeByVisitor は訪問者のいいねを同一トランザクションで反転し、
// 更新後のいいね数と反転後の状態を返す。
func (r *PostgresReelRepo) ToggleLikeByVisitor(ctx context.Context, shop string, id int64, visitorID string) (int, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 対象リールをテナント確認も兼ねてロックする
	var reelID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM reels WHERE shop = $1 AND id = $2 FOR UPDATE`,
		shop, id,
	).Scan(&reelID)
	if err == sql.ErrNoRows {
		return 0, false, err
	}
	if err != nil {
		return 0, false, fmt.Errorf("いいね対象リールの取得に失敗しました: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reel_likes (reel_id, visitor_id) VALUES ($1, $2)
		 ON CONFLICT (reel_id, visitor_id) DO NOTHING`,
		id, visitorID,
	)
	if err != nil {
		return 0, false, fmt.Errorf("いいねの記録に失敗しました: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("いいね記録結果の確認に失敗しました: %w", err)
	}

	liked := inserted > 0
	delta := 1
	if !liked {
		// すでに記録済みなら取り消し
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM reel_likes WHERE reel_id = $1 AND visitor_id = $2`,
			id, visitorID,
		); err != nil {
			return 0, false, fmt.Errorf("いいねの取り消しに失敗しました: %w", err)
		}
		delta = -1
	}

	var likes int
	if err := tx.QueryRowContext(ctx,
		`UPDATE reels SET likes = GREATEST(likes + $3, 0), updated_at = NOW()
		 WHERE shop = $1 AND id = $2
		 RETURNING likes`,
		shop, id, delta,
	).Scan(&likes); err != nil {
		return 0, false, fmt.Errorf("いいね数の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("いいね反転のコミットに失敗しました: %w", err)
	}
	return likes, liked, nil
}

// Delete は指定ショップ・指定IDのリールを削除する。
func (r *PostgresReelRepo) Delete(ctx context.Context, shop string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reels WHERE shop = $1 AND id = $2`,
		shop, id,
	)
	if err != nil {
		return fmt.Errorf("リールの削除に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("リール削除結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteBulk は複数IDを一括削除し、削除件数を返す。
func (r *PostgresReelRepo) DeleteBulk(ctx context.Context, shop string, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reels WHERE shop = $1 AND id = ANY($2)`,
		shop, pq.Array(ids),
	)
	if err != nil {
		return 0, fmt.Errorf("リールの一括削除に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("一括削除結果の確認に失敗しました: %w", err)
	}
	return int(affected), nil
}

// SetLiveBulk は複数IDの公開状態を一括更新し、更新件数を返す。
func (r *PostgresReelRepo) SetLiveBulk(ctx context.Context, shop string, ids []int64, isLive bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reels SET is_live = $3, updated_at = NOW()
		 WHERE shop = $1 AND id = ANY($2)`,
		shop, pq.Array(ids), isLive,
	)
	if err != nil {
		return 0, fmt.Errorf("公開状態の一括更新に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("一括更新結果の確認に失敗しました: %w", err)
	}
	return int(affected), nil
}

// DeleteByShop はショップの全リールを削除する（アンインストール時）。
func (r *PostgresReelRepo) DeleteByShop(ctx context.Context, shop string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reels WHERE shop = $1`, shop)
	if err != nil {
		return fmt.Errorf("ショップのリール削除に失敗しました: %w", err)
	}
	return nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullDecimal はゼロ値のdecimalをNULLとして扱う。
func nullDecimal(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
