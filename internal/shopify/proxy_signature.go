package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// VerifyProxySignature はアプリプロキシ経由リクエストのsignatureクエリパラメータを検証する。
// signatureを除くパラメータをキー順に並べ、"key=値1,値2"の形式で区切りなしに連結した
// 文字列のHMAC-SHA256（16進）と比較する。
func VerifyProxySignature(secret string, query url.Values) bool {
	signature := query.Get("signature")
	if signature == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		if key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(strings.Join(query[key], ","))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sb.String()))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
