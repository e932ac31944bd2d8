package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したShopifyセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Upsert はセッションをIDをキーにUPSERTする。
func (r *PostgresSessionRepo) Upsert(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, shop, access_token, scope, is_online, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		    access_token = EXCLUDED.access_token,
		    scope = EXCLUDED.scope,
		    is_online = EXCLUDED.is_online,
		    expires_at = EXCLUDED.expires_at`,
		session.ID, session.Shop, session.AccessToken,
		nullString(session.Scope), session.IsOnline, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("セッションのupsertに失敗しました: %w", err)
	}
	return nil
}

// FindByShop は指定ショップのオフラインセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByShop(ctx context.Context, shop string) (*model.Session, error) {
	session := &model.Session{}
	var scope sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, shop, access_token, scope, is_online, expires_at, created_at
		 FROM sessions
		 WHERE shop = $1 AND is_online = FALSE`,
		shop,
	).Scan(
		&session.ID, &session.Shop, &session.AccessToken,
		&scope, &session.IsOnline, &session.ExpiresAt, &session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}

	session.Scope = nullStringValue(scope)
	return session, nil
}

// DeleteByShop はショップの全セッションを削除する（アンインストール時）。
func (r *PostgresSessionRepo) DeleteByShop(ctx context.Context, shop string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE shop = $1`, shop)
	if err != nil {
		return fmt.Errorf("ショップのセッション削除に失敗しました: %w", err)
	}
	return nil
}
