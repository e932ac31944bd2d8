package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upload, sync, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeShopMissing        = "SHOP_MISSING"
	ErrCodeReelIDMissing      = "REEL_ID_MISSING"
	ErrCodeReelNotFound       = "REEL_NOT_FOUND"
	ErrCodeInvalidIntent      = "INVALID_INTENT"
	ErrCodeInvalidUploadInput = "INVALID_UPLOAD_INPUT"
	ErrCodeUploadInitFailed   = "UPLOAD_INIT_FAILED"
	ErrCodeIncompletePublish  = "INCOMPLETE_PUBLISH"
	ErrCodeInvalidSettings    = "INVALID_SETTINGS"
	ErrCodeInstagramToken     = "INSTAGRAM_TOKEN_MISSING"
	ErrCodeInstagramAPI       = "INSTAGRAM_API_FAILED"
	ErrCodeUnsafeMediaURL     = "UNSAFE_MEDIA_URL"
	ErrCodeWebhookVerify      = "WEBHOOK_VERIFY_FAILED"
)

// NewShopMissingError はショップ識別子が欠落しているエラーを生成する。
func NewShopMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeShopMissing,
		Message:  "ショップが指定されていません。",
		Category: "validation",
		Action:   "shopクエリパラメータを指定してください。",
	}
}

// NewReelIDMissingError はリールIDが欠落しているエラーを生成する。
func NewReelIDMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeReelIDMissing,
		Message:  "リールIDが指定されていません。",
		Category: "validation",
		Action:   "reelIdを指定してください。",
	}
}

// NewReelNotFoundError はリールが見つからないエラーを生成する。
func NewReelNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeReelNotFound,
		Message:  fmt.Sprintf("指定されたリールが見つかりません: %d", id),
		Category: "validation",
		Action:   "リールIDを確認してください。",
	}
}

// NewInvalidIntentError は未知のintentエラーを生成する。
func NewInvalidIntentError(intent string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidIntent,
		Message:  fmt.Sprintf("無効なintentです: %s", intent),
		Category: "validation",
		Action:   "intentには toggle_like または increment_views を指定してください。",
	}
}

// NewInvalidUploadInputError はステージドアップロードの入力不備エラーを生成する。
func NewInvalidUploadInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUploadInput,
		Message:  fmt.Sprintf("アップロード入力が不正です: %s", reason),
		Category: "upload",
		Action:   "ファイル名・サイズ・MIMEタイプを確認してください。",
	}
}

// NewUploadInitFailedError はアップロード開始失敗エラーを生成する。
func NewUploadInitFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUploadInitFailed,
		Message:  "アップロード先の取得に失敗しました。",
		Category: "upload",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewIncompletePublishError は公開前提条件の不足エラーを生成する。
// アップロード済み動画と選択済み商品の両方が揃っていない場合に返す。
func NewIncompletePublishError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeIncompletePublish,
		Message:  fmt.Sprintf("リールを公開できません: %s", reason),
		Category: "upload",
		Action:   "動画のアップロードと商品の選択を完了してから公開してください。",
	}
}

// NewInvalidSettingsError は設定フィールドの値が不正なエラーを生成する。
func NewInvalidSettingsError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSettings,
		Message:  fmt.Sprintf("設定の値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力値を確認してから再度保存してください。",
	}
}

// NewInstagramTokenError はInstagramトークン未設定エラーを生成する。
func NewInstagramTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInstagramToken,
		Message:  "Instagramアクセストークンが設定されていません。",
		Category: "sync",
		Action:   "環境変数 INSTAGRAM_ACCESS_TOKEN を設定してください。",
	}
}

// NewInstagramAPIError はInstagram API呼び出し失敗エラーを生成する。
func NewInstagramAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeInstagramAPI,
		Message:  "Instagram APIへの接続に失敗しました。",
		Category: "sync",
		Action:   "トークンの有効期限を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewUnsafeMediaURLError は安全でないメディアURLのエラーを生成する。
func NewUnsafeMediaURLError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsafeMediaURL,
		Message:  "セキュリティポリシーにより、指定されたメディアURLは保存できません。",
		Category: "validation",
		Action:   "公開されているhttps URLのみ使用できます。",
	}
}
