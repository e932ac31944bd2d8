package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// OAuthConfig はShopify OAuthの設定。
type OAuthConfig struct {
	APIKey    string
	APISecret string
	AppURL    string // コールバックURLの組み立てに使用する
	Scopes    string // カンマ区切り（例: "read_products,write_files"）

	// テスト用にオーバーライド可能なトークンエンドポイント。
	// 空の場合はショップドメインから組み立てる。
	TokenURL string
}

// OAuthProvider はShopify OAuth 2.0によるアプリ認可を提供する。
type OAuthProvider struct {
	config     OAuthConfig
	httpClient *http.Client
}

// NewOAuthProvider はOAuthProviderを生成する。
func NewOAuthProvider(config OAuthConfig, httpClient *http.Client) *OAuthProvider {
	return &OAuthProvider{config: config, httpClient: httpClient}
}

// shopDomainPattern は有効なmyshopify.comドメインの形式。
var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// ValidShopDomain はショップドメインがmyshopify.comの正規形式かを検証する。
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// AuthorizeURL はショップの認可画面URLを生成する。
func (p *OAuthProvider) AuthorizeURL(shop, state string) string {
	params := url.Values{
		"client_id":    {p.config.APIKey},
		"scope":        {p.config.Scopes},
		"redirect_uri": {strings.TrimSuffix(p.config.AppURL, "/") + "/auth/shopify/callback"},
		"state":        {state},
	}
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, params.Encode())
}

// VerifyCallbackHMAC はOAuthコールバックのクエリパラメータのHMAC署名を検証する。
// hmacパラメータを除いたクエリをキー順に並べた文字列に対するSHA256 HMACを比較する。
func (p *OAuthProvider) VerifyCallbackHMAC(query url.Values) bool {
	received := query.Get("hmac")
	if received == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query.Get(k))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(p.config.APISecret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(received))
}

// accessTokenResponse はトークンエンドポイントのレスポンス。
type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// tokenURL はショップドメインからトークンエンドポイントURLを組み立てる。
func (p *OAuthProvider) tokenURL(shop string) string {
	if p.config.TokenURL != "" {
		return p.config.TokenURL
	}
	return fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
}

// ExchangeCode は認可コードをオフラインアクセストークンに交換する。
func (p *OAuthProvider) ExchangeCode(ctx context.Context, shop, code string) (accessToken, scope string, err error) {
	form := url.Values{
		"client_id":     {p.config.APIKey},
		"client_secret": {p.config.APISecret},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL(shop),
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("トークンリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("トークンエンドポイントの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("トークンレスポンスの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("トークンエンドポイントがステータス %d を返しました", resp.StatusCode)
	}

	var tokenResp accessTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", "", fmt.Errorf("トークンレスポンスのパースに失敗しました: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", "", fmt.Errorf("アクセストークンが空です")
	}

	return tokenResp.AccessToken, tokenResp.Scope, nil
}
