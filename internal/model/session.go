package model

import "time"

// Session はShopifyのOAuthオフラインセッション（ショップごとのAPIアクセストークン）を表す。
// アンインストール時はショップ単位で削除される。
type Session struct {
	ID          string // "offline_<shop>" 形式
	Shop        string
	AccessToken string
	Scope       string
	IsOnline    bool
	ExpiresAt   *time.Time // オフライントークンは無期限（nil）
	CreatedAt   time.Time
}

// OfflineSessionID はショップドメインからオフラインセッションIDを生成する。
func OfflineSessionID(shop string) string {
	return "offline_" + shop
}
