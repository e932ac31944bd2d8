// Package instagram はInstagram Graph APIとの連携機能を提供する。
// メディア一覧の取得と、リールのショップへの同期を含む。
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// defaultEndpoint はInstagram Graph APIのメディア一覧エンドポイント。
const defaultEndpoint = "https://graph.instagram.com/me/media"

// mediaFields は取得するメディアのフィールド一覧。
const mediaFields = "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp"

// Media はInstagramのメディア1件を表す。
type Media struct {
	ID           string `json:"id"`
	Caption      string `json:"caption"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
}

type mediaListResponse struct {
	Data []Media `json:"data"`
}

// Client はInstagram Graph APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   defaultEndpoint,
	}
}

// ListVideos はアカウントのメディア一覧を取得し、VIDEO型のみを返す。
func (c *Client) ListVideos(ctx context.Context, accessToken string) ([]Media, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("fields", mediaFields)
	q.Set("access_token", accessToken)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Instagram APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Instagram APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("Instagram APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result mediaListResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("Instagram APIレスポンスのパースに失敗しました: %w", err)
	}

	videos := make([]Media, 0, len(result.Data))
	for _, media := range result.Data {
		if media.MediaType == "VIDEO" {
			videos = append(videos, media)
		}
	}
	return videos, nil
}
