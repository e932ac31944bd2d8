package shopify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenClaims はApp Bridgeセッショントークンのクレーム。
// destクレームが埋め込み先ショップのオリジン（https://<shop>）を示す。
type SessionTokenClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// SessionTokenVerifier は管理画面から送られるApp Bridgeセッショントークンを検証する。
// トークンはAPIシークレットをキーにHS256で署名され、audクレームにAPIキーが入る。
type SessionTokenVerifier struct {
	apiKey    string
	apiSecret string
}

// NewSessionTokenVerifier はSessionTokenVerifierを生成する。
func NewSessionTokenVerifier(apiKey, apiSecret string) *SessionTokenVerifier {
	return &SessionTokenVerifier{apiKey: apiKey, apiSecret: apiSecret}
}

// Verify はセッショントークンを検証し、destクレームからショップドメインを返す。
// 署名不一致、期限切れ、aud不一致、dest不正の場合はエラーを返す。
func (v *SessionTokenVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionTokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("想定外の署名アルゴリズムです: %v", token.Header["alg"])
			}
			return []byte(v.apiSecret), nil
		},
		jwt.WithAudience(v.apiKey),
	)
	if err != nil {
		return "", fmt.Errorf("セッショントークンの検証に失敗しました: %w", err)
	}

	claims, ok := token.Claims.(*SessionTokenClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("セッショントークンが不正です")
	}

	shop, err := shopFromDest(claims.Dest)
	if err != nil {
		return "", err
	}
	return shop, nil
}

// shopFromDest はdestクレーム（https://<shop>形式）からショップドメインを取り出す。
func shopFromDest(dest string) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("destクレームが空です")
	}

	parsed, err := url.Parse(dest)
	if err != nil {
		return "", fmt.Errorf("destクレームのパースに失敗しました: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		// スキームなしのdestはそのままホストとして扱う
		host = strings.TrimSuffix(dest, "/")
	}
	if !ValidShopDomain(host) {
		return "", fmt.Errorf("destクレームのショップドメインが不正です: %s", host)
	}
	return host, nil
}
