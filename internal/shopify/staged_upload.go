package shopify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahilgaikawad/ReelCart-Shopify-App/internal/model"
)

// stagedUploadsCreateMutation は動画の直接アップロード先を発行するミューテーション。
const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets { url resourceUrl parameters { name value } }
    userErrors { field message }
  }
}`

// StagedUploadInput はステージドアップロード要求の入力。
type StagedUploadInput struct {
	Filename string
	MimeType string
	FileSize int64
}

// StagedUploadParameter はアップロードPOSTに添付するフォームパラメータ。
type StagedUploadParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StagedTarget は発行されたアップロード先。
// URLへブラウザが直接POSTし、ResourceURLをfileCreateのoriginalSourceに渡す。
type StagedTarget struct {
	URL         string                  `json:"url"`
	ResourceURL string                  `json:"resourceUrl"`
	Parameters  []StagedUploadParameter `json:"parameters"`
}

type stagedUploadsCreateData struct {
	StagedUploadsCreate struct {
		StagedTargets []StagedTarget `json:"stagedTargets"`
		UserErrors    []UserError    `json:"userErrors"`
	} `json:"stagedUploadsCreate"`
}

// StagedUploadBroker は動画ファイルのステージドアップロード先を発行する。
// 動画本体はアプリサーバーを経由せず、ブラウザからShopifyのストレージへ直接送られる。
type StagedUploadBroker struct {
	client *Client
	logger *slog.Logger
}

// NewStagedUploadBroker はStagedUploadBrokerを生成する。
func NewStagedUploadBroker(client *Client, logger *slog.Logger) *StagedUploadBroker {
	return &StagedUploadBroker{client: client, logger: logger}
}

// CreateTarget は入力を検証し、VIDEOリソースのアップロード先を1件発行する。
// filename・mimeTypeが空、またはfileSizeが0以下の場合は入力エラーを返す。
// アップロード先が得られない場合は初期化失敗エラーを返す。
func (b *StagedUploadBroker) CreateTarget(ctx context.Context, session *model.Session, input StagedUploadInput) (*StagedTarget, error) {
	if input.Filename == "" || input.MimeType == "" || input.FileSize <= 0 {
		return nil, model.NewInvalidUploadInputError("filename、mimeType、fileSizeはすべて必須です")
	}

	variables := map[string]any{
		"input": []map[string]any{{
			"filename": input.Filename,
			"mimeType": input.MimeType,
			"fileSize": fmt.Sprintf("%d", input.FileSize),
			"resource": "VIDEO",
		}},
	}

	var data stagedUploadsCreateData
	if err := b.client.GraphQL(ctx, session.Shop, session.AccessToken, stagedUploadsCreateMutation, variables, &data); err != nil {
		return nil, fmt.Errorf("ステージドアップロードの作成に失敗しました: %w", err)
	}

	result := data.StagedUploadsCreate
	if len(result.UserErrors) > 0 {
		b.logger.Error("ステージドアップロードがuserErrorsを返しました",
			slog.String("shop", session.Shop),
			slog.String("message", result.UserErrors[0].Message),
		)
		return nil, model.NewUploadInitFailedError()
	}
	if len(result.StagedTargets) == 0 {
		b.logger.Error("ステージドアップロード先が返されませんでした",
			slog.String("shop", session.Shop),
		)
		return nil, model.NewUploadInitFailedError()
	}

	target := result.StagedTargets[0]
	b.logger.Info("ステージドアップロード先を発行しました",
		slog.String("shop", session.Shop),
		slog.String("filename", input.Filename),
	)
	return &target, nil
}
