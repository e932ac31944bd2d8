package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifyWebhookHMAC はWebhookリクエストボディのHMAC署名を検証する。
// ShopifyはAPIシークレットをキーにボディ全体のSHA256 HMACをBase64で
// X-Shopify-Hmac-Sha256ヘッダーに載せて送信する。
// 比較は定数時間で行う。
func VerifyWebhookHMAC(secret string, body []byte, headerValue string) bool {
	if headerValue == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(headerValue))
}
