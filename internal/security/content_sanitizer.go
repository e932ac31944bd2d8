// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はInstagramキャプションなどの外部由来テキストを
// サニタイズし、ストアフロントへのXSS持ち込みを防止する。
// タイトルやキャプションはプレーンテキストとして扱うため、
// bluemondayのStrictPolicyで全タグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は外部由来テキストのサニタイズ機能のインターフェースを定義する。
// Instagram同期でのキャプション保存前および商品タイトルの保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeText はテキストから全HTMLタグとイベント属性を除去し、
	// プレーンテキストのみを返す。前後の空白もトリムされる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全タグを除去する許可リスト空のポリシーで、
// script、iframe、style、on*イベント属性を含む一切のマークアップを通さない。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はテキストから全HTMLタグを除去してプレーンテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
