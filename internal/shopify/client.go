// Package shopify はShopify Admin APIとの連携機能を提供する。
// GraphQLクライアント、OAuth、ステージドアップロード、動画処理待機、
// Webhook検証、セッショントークン検証を含む。
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Client はShopify Admin GraphQL APIのクライアント。
// ショップドメインとアクセストークンはリクエストごとに受け取る（マルチテナント）。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiVersion string
	endpoint   string // テスト用にエンドポイントを差し替え可能。空の場合はショップドメインから組み立てる。
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiVersion string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiVersion: apiVersion,
	}
}

// graphQLRequest はGraphQLリクエストボディ。
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLResponse はGraphQLレスポンスの外側の構造。
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// graphQLError はGraphQLのトップレベルエラー。
type graphQLError struct {
	Message string `json:"message"`
}

// UserError はShopifyミューテーションのuserErrors要素。
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// graphqlURL はショップドメインからGraphQLエンドポイントURLを組み立てる。
func (c *Client) graphqlURL(shop string) string {
	if c.endpoint != "" {
		return c.endpoint
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, c.apiVersion)
}

// GraphQL はAdmin GraphQL APIにクエリを送信し、data部をoutにデコードする。
// トップレベルのGraphQLエラーが含まれる場合はエラーを返す。
// ミューテーションのuserErrorsは呼び出し元がdata部から判定する。
func (c *Client) GraphQL(ctx context.Context, shop, accessToken, query string, variables map[string]any, out any) error {
	reqBody, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("GraphQLリクエストのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL(shop), bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Shopify Admin APIの呼び出しに失敗しました",
			slog.String("shop", shop),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("Shopify Admin APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Shopify Admin APIがエラーステータスを返しました",
			slog.String("shop", shop),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("Shopify Admin APIがステータス %d を返しました", resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return fmt.Errorf("GraphQLレスポンスのパースに失敗しました: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		c.logger.Error("GraphQLクエリがエラーを返しました",
			slog.String("shop", shop),
			slog.String("message", gqlResp.Errors[0].Message),
		)
		return fmt.Errorf("GraphQLクエリが失敗しました: %s", gqlResp.Errors[0].Message)
	}

	if out != nil {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return fmt.Errorf("GraphQLのdata部のパースに失敗しました: %w", err)
		}
	}

	return nil
}
