package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
)

const settingsColumns = `shop, primary_color, button_text_color, button_text, border_radius,
	       layout_type, enable_gradient, widget_heading, cart_action, auto_sync,
	       autoplay, show_views, show_rating, floating_player_visible, display_location,
	       created_at, updated_at`

// PostgresSettingsRepo はPostgreSQLを使用したショップ設定リポジトリ。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

func scanSettings(row rowScanner) (*model.AppSettings, error) {
	s := &model.AppSettings{}
	err := row.Scan(
		&s.Shop, &s.PrimaryColor, &s.ButtonTextColor, &s.ButtonText, &s.BorderRadius,
		&s.LayoutType, &s.EnableGradient, &s.WidgetHeading, &s.CartAction, &s.AutoSync,
		&s.Autoplay, &s.ShowViews, &s.ShowRating, &s.FloatingPlayerVisible, &s.DisplayLocation,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindByShop は指定ショップの設定を取得する。見つからない場合はnilを返す。
func (r *PostgresSettingsRepo) FindByShop(ctx context.Context, shop string) (*model.AppSettings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM app_settings WHERE shop = $1`,
		shop,
	)
	settings, err := scanSettings(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ショップ設定の取得に失敗しました: %w", err)
	}
	return settings, nil
}

// Upsert は設定行を丸ごとUPSERTする。
func (r *PostgresSettingsRepo) Upsert(ctx context.Context, settings *model.AppSettings) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO app_settings (shop, primary_color, button_text_color, button_text, border_radius,
		                           layout_type, enable_gradient, widget_heading, cart_action, auto_sync,
		                           autoplay, show_views, show_rating, floating_player_visible, display_location)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (shop) DO UPDATE SET
		    primary_color = EXCLUDED.primary_color,
		    button_text_color = EXCLUDED.button_text_color,
		    button_text = EXCLUDED.button_text,
		    border_radius = EXCLUDED.border_radius,
		    layout_type = EXCLUDED.layout_type,
		    enable_gradient = EXCLUDED.enable_gradient,
		    widget_heading = EXCLUDED.widget_heading,
		    cart_action = EXCLUDED.cart_action,
		    auto_sync = EXCLUDED.auto_sync,
		    autoplay = EXCLUDED.autoplay,
		    show_views = EXCLUDED.show_views,
		    show_rating = EXCLUDED.show_rating,
		    floating_player_visible = EXCLUDED.floating_player_visible,
		    display_location = EXCLUDED.display_location,
		    updated_at = NOW()
		 RETURNING created_at, updated_at`,
		settings.Shop, settings.PrimaryColor, settings.ButtonTextColor, settings.ButtonText, settings.BorderRadius,
		settings.LayoutType, settings.EnableGradient, settings.WidgetHeading, settings.CartAction, settings.AutoSync,
		settings.Autoplay, settings.ShowViews, settings.ShowRating, settings.FloatingPlayerVisible, settings.DisplayLocation,
	).Scan(&settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ショップ設定のupsertに失敗しました: %w", err)
	}
	return nil
}

// Update は部分更新を適用し、更新後の設定を返す。
// 設定行が未作成の場合は既定値で作成してから適用する。
func (r *PostgresSettingsRepo) Update(ctx context.Context, shop string, update *model.AppSettingsUpdate) (*model.AppSettings, error) {
	// 行が無いショップは既定値で先に作成する（競合時は何もしない）
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO app_settings (shop) VALUES ($1) ON CONFLICT (shop) DO NOTHING`,
		shop,
	); err != nil {
		return nil, fmt.Errorf("ショップ設定の初期化に失敗しました: %w", err)
	}

	if update.IsEmpty() {
		return r.FindByShop(ctx, shop)
	}

	var sets []string
	args := []any{shop}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.PrimaryColor != nil {
		add("primary_color", *update.PrimaryColor)
	}
	if update.ButtonTextColor != nil {
		add("button_text_color", *update.ButtonTextColor)
	}
	if update.ButtonText != nil {
		add("button_text", *update.ButtonText)
	}
	if update.BorderRadius != nil {
		add("border_radius", *update.BorderRadius)
	}
	if update.LayoutType != nil {
		add("layout_type", *update.LayoutType)
	}
	if update.EnableGradient != nil {
		add("enable_gradient", *update.EnableGradient)
	}
	if update.WidgetHeading != nil {
		add("widget_heading", *update.WidgetHeading)
	}
	if update.CartAction != nil {
		add("cart_action", *update.CartAction)
	}
	if update.AutoSync != nil {
		add("auto_sync", *update.AutoSync)
	}
	if update.Autoplay != nil {
		add("autoplay", *update.Autoplay)
	}
	if update.ShowViews != nil {
		add("show_views", *update.ShowViews)
	}
	if update.ShowRating != nil {
		add("show_rating", *update.ShowRating)
	}
	if update.FloatingPlayerVisible != nil {
		add("floating_player_visible", *update.FloatingPlayerVisible)
	}
	if update.DisplayLocation != nil {
		add("display_location", *update.DisplayLocation)
	}

	query := fmt.Sprintf(
		`UPDATE app_settings SET %s, updated_at = NOW() WHERE shop = $1 RETURNING %s`,
		strings.Join(sets, ", "), settingsColumns,
	)
	settings, err := scanSettings(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("ショップ設定の更新に失敗しました: %w", err)
	}
	return settings, nil
}

// ListAutoSyncShops はauto_syncが有効なショップのドメイン一覧を返す。
func (r *PostgresSettingsRepo) ListAutoSyncShops(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT shop FROM app_settings WHERE auto_sync = TRUE ORDER BY shop`,
	)
	if err != nil {
		return nil, fmt.Errorf("自動同期ショップ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var shops []string
	for rows.Next() {
		var shop string
		if err := rows.Scan(&shop); err != nil {
			return nil, fmt.Errorf("自動同期ショップ一覧の読み取りに失敗しました: %w", err)
		}
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("自動同期ショップ一覧の読み取りに失敗しました: %w", err)
	}
	return shops, nil
}

// DeleteByShop はショップの設定を削除する（アンインストール時）。
func (r *PostgresSettingsRepo) DeleteByShop(ctx context.Context, shop string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM app_settings WHERE shop = $1`, shop)
	if err != nil {
		return fmt.Errorf("ショップ設定の削除に失敗しました: %w", err)
	}
	return nil
}
