package shopify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
)

// fileCreateMutation はステージ済みリソースからVideoファイルを登録するミューテーション。
const fileCreateMutation = `
mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files { ... on Video { id } }
    userErrors { field message }
  }
}`

// videoSourcesQuery はVideoノードの処理済み配信URLを取得するクエリ。
const videoSourcesQuery = `
query getFile($id: ID!) {
  node(id: $id) { ... on Video { sources { url } } }
}`

type fileCreateData struct {
	FileCreate struct {
		Files []struct {
			ID string `json:"id"`
		} `json:"files"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"fileCreate"`
}

type videoSourcesData struct {
	Node struct {
		Sources []struct {
			URL string `json:"url"`
		} `json:"sources"`
	} `json:"node"`
}

// ProcessedURLResolver は動画の処理済み配信URLの解決インターフェース。
// 実装はポーリングで解決するが、呼び出し側はそれを意識しない。
type ProcessedURLResolver interface {
	// Resolve はfileIDの動画がCDN配信可能になるのを待ち、配信URLを返す。
	// 待機上限までに配信URLが得られない場合はoriginalURLをそのまま返す（エラーにしない）。
	// コンテキストのキャンセルでのみエラーを返す。
	Resolve(ctx context.Context, session *model.Session, fileID, originalURL string) (string, error)
}

// FileService はShopifyファイルAPIの操作を提供する。
type FileService struct {
	client *Client
	logger *slog.Logger

	attempts  int
	interval  time.Duration
	cdnDomain string

	// sleep はテスト用に差し替え可能な待機関数。
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFileService はFileServiceを生成する。
// attemptsが0以下の場合は10、intervalが0以下の場合は3秒を使用する。
func NewFileService(client *Client, logger *slog.Logger, attempts int, interval time.Duration, cdnDomain string) *FileService {
	if attempts <= 0 {
		attempts = 10
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if cdnDomain == "" {
		cdnDomain = "cdn.shopify.com"
	}
	return &FileService{
		client:    client,
		logger:    logger,
		attempts:  attempts,
		interval:  interval,
		cdnDomain: cdnDomain,
		sleep:     sleepContext,
	}
}

// sleepContext はコンテキストのキャンセルに応答する待機を行う。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CreateVideo はステージ済みリソースURLからVideoファイルを登録し、ファイルIDを返す。
// userErrorsが返された場合、またはIDが得られない場合は空文字列を返す（エラーにしない）。
// ファイル登録に失敗しても元のリソースURLで保存を続行できるようにするため。
func (s *FileService) CreateVideo(ctx context.Context, session *model.Session, alt, resourceURL string) (string, error) {
	variables := map[string]any{
		"files": []map[string]any{{
			"alt":            alt,
			"contentType":    "VIDEO",
			"originalSource": resourceURL,
		}},
	}

	var data fileCreateData
	if err := s.client.GraphQL(ctx, session.Shop, session.AccessToken, fileCreateMutation, variables, &data); err != nil {
		return "", fmt.Errorf("動画ファイルの登録に失敗しました: %w", err)
	}

	if len(data.FileCreate.UserErrors) > 0 {
		s.logger.Warn("fileCreateがuserErrorsを返しました",
			slog.String("shop", session.Shop),
			slog.String("message", data.FileCreate.UserErrors[0].Message),
		)
		return "", nil
	}
	if len(data.FileCreate.Files) == 0 || data.FileCreate.Files[0].ID == "" {
		s.logger.Warn("fileCreateがファイルIDを返しませんでした",
			slog.String("shop", session.Shop),
		)
		return "", nil
	}

	return data.FileCreate.Files[0].ID, nil
}

// Resolve はfileIDの動画がCDN配信可能になるのを待ち、配信URLを返す。
// 各試行の前にintervalだけ待機し、sourcesの中からCDNドメインを含むURLを探す。
// 見つかった時点でポーリングを打ち切る。attempts回の試行で見つからない場合は
// originalURLをそのまま返す（処理遅延は失敗として扱わない）。
func (s *FileService) Resolve(ctx context.Context, session *model.Session, fileID, originalURL string) (string, error) {
	if fileID == "" {
		return originalURL, nil
	}

	for i := 0; i < s.attempts; i++ {
		if err := s.sleep(ctx, s.interval); err != nil {
			return "", err
		}

		var data videoSourcesData
		err := s.client.GraphQL(ctx, session.Shop, session.AccessToken, videoSourcesQuery,
			map[string]any{"id": fileID}, &data)
		if err != nil {
			// 一時的なAPI失敗は次の試行に回す
			s.logger.Warn("動画処理状態の確認に失敗しました",
				slog.String("shop", session.Shop),
				slog.String("file_id", fileID),
				slog.Int("attempt", i+1),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, source := range data.Node.Sources {
			if strings.Contains(source.URL, s.cdnDomain) {
				s.logger.Info("動画のCDN配信URLを取得しました",
					slog.String("shop", session.Shop),
					slog.String("file_id", fileID),
					slog.Int("attempt", i+1),
				)
				return source.URL, nil
			}
		}
	}

	s.logger.Info("動画処理の完了を待ちきれなかったため元URLを使用します",
		slog.String("shop", session.Shop),
		slog.String("file_id", fileID),
		slog.Int("attempts", s.attempts),
	)
	return originalURL, nil
}
