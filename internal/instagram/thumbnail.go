package instagram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/net/html"
)

// maxThumbnailPageSize はサムネイル解決で読み込むHTMLの最大サイズ。
const maxThumbnailPageSize = 2 * 1024 * 1024

// ThumbnailResolver はメディアのサムネイルURLを解決する。
// APIレスポンスにthumbnail_urlが無い場合、permalinkページのogタグから補完する。
type ThumbnailResolver struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewThumbnailResolver はThumbnailResolverを生成する。
// httpClientにはSSRF防止付きクライアントを渡すこと。
func NewThumbnailResolver(httpClient *http.Client, logger *slog.Logger) *ThumbnailResolver {
	return &ThumbnailResolver{httpClient: httpClient, logger: logger}
}

// Resolve はメディアのサムネイルURLを返す。
// 優先順位: thumbnail_url → permalinkページのog:image → media_url。
// ページ取得やパースに失敗してもエラーにせずmedia_urlへフォールバックする。
func (r *ThumbnailResolver) Resolve(ctx context.Context, media Media) string {
	if media.ThumbnailURL != "" {
		return media.ThumbnailURL
	}

	if media.Permalink != "" {
		if ogImage, err := r.fetchOGImage(ctx, media.Permalink); err == nil && ogImage != "" {
			return ogImage
		} else if err != nil {
			r.logger.Warn("ogタグによるサムネイル解決に失敗しました",
				slog.String("permalink", media.Permalink),
				slog.String("error", err.Error()),
			)
		}
	}

	return media.MediaURL
}

// fetchOGImage はページのog:imageメタタグの内容を返す。
func (r *ThumbnailResolver) fetchOGImage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ページ取得がステータス %d を返しました", resp.StatusCode)
	}

	return extractOGImage(io.LimitReader(resp.Body, maxThumbnailPageSize))
}

// extractOGImage はHTMLからog:imageメタタグのcontent属性を取り出す。
// 見つからない場合は空文字列を返す。
func extractOGImage(body io.Reader) (string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return "", fmt.Errorf("HTMLのパースに失敗しました: %w", err)
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if property == "og:image" && content != "" {
				found = content
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return found, nil
}
