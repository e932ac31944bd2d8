package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
)

func newTestOAuthProvider(tokenURL string) *OAuthProvider {
	return NewOAuthProvider(OAuthConfig{
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
		AppURL:    "https://reelcart.example.com",
		Scopes:    "read_products,write_files",
		TokenURL:  tokenURL,
	}, http.DefaultClient)
}

// signQuery はhmacパラメータを除いたクエリに対する署名を計算する。
func signQuery(secret string, query url.Values) string {
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

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// TestAuthorizeURL は認可URLの組み立てをテストする。
func TestAuthorizeURL(t *testing.T) {
	p := newTestOAuthProvider("")
	rawURL := p.AuthorizeURL("demo.myshopify.com", "state-abc")

	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("failed to parse URL: %v", err)
	}
	if parsed.Host != "demo.myshopify.com" {
		t.Errorf("host = %q, want shop domain", parsed.Host)
	}
	if parsed.Path != "/admin/oauth/authorize" {
		t.Errorf("path = %q, want /admin/oauth/authorize", parsed.Path)
	}

	q := parsed.Query()
	if q.Get("client_id") != testAPIKey {
		t.Errorf("client_id = %q, want %q", q.Get("client_id"), testAPIKey)
	}
	if q.Get("scope") != "read_products,write_files" {
		t.Errorf("scope = %q, want configured scopes", q.Get("scope"))
	}
	if q.Get("redirect_uri") != "https://reelcart.example.com/auth/shopify/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("state = %q, want state-abc", q.Get("state"))
	}
}

// TestVerifyCallbackHMAC_Valid は正しい署名付きコールバックが受理されることをテストする。
func TestVerifyCallbackHMAC_Valid(t *testing.T) {
	p := newTestOAuthProvider("")

	query := url.Values{
		"shop":      {"demo.myshopify.com"},
		"code":      {"auth-code"},
		"state":     {"state-abc"},
		"timestamp": {"1700000000"},
	}
	query.Set("hmac", signQuery(testAPISecret, query))

	if !p.VerifyCallbackHMAC(query) {
		t.Error("valid callback HMAC was rejected")
	}
}

// TestVerifyCallbackHMAC_Invalid は不正な署名が拒否されることをテストする。
func TestVerifyCallbackHMAC_Invalid(t *testing.T) {
	p := newTestOAuthProvider("")

	query := url.Values{
		"shop": {"demo.myshopify.com"},
		"code": {"auth-code"},
	}

	t.Run("missing hmac", func(t *testing.T) {
		if p.VerifyCallbackHMAC(query) {
			t.Error("callback without hmac was accepted")
		}
	})

	t.Run("wrong hmac", func(t *testing.T) {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("hmac", "deadbeef")
		if p.VerifyCallbackHMAC(q) {
			t.Error("callback with wrong hmac was accepted")
		}
	})

	t.Run("tampered param", func(t *testing.T) {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("hmac", signQuery(testAPISecret, q))
		q.Set("shop", "evil.myshopify.com")
		if p.VerifyCallbackHMAC(q) {
			t.Error("tampered callback was accepted")
		}
	})
}

// TestExchangeCode_Success は認可コードの交換をテストする。
func TestExchangeCode_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("client_id") != testAPIKey {
			t.Errorf("client_id = %q, want %q", r.PostForm.Get("client_id"), testAPIKey)
		}
		if r.PostForm.Get("code") != "auth-code" {
			t.Errorf("code = %q, want auth-code", r.PostForm.Get("code"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"shpat_test","scope":"read_products,write_files"}`))
	}))
	defer server.Close()

	p := newTestOAuthProvider(server.URL)
	token, scope, err := p.ExchangeCode(context.Background(), "demo.myshopify.com", "auth-code")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "shpat_test" {
		t.Errorf("token = %q, want shpat_test", token)
	}
	if scope != "read_products,write_files" {
		t.Errorf("scope = %q", scope)
	}
}

// TestExchangeCode_ErrorStatus はエラーステータス応答がエラーになることをテストする。
func TestExchangeCode_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	p := newTestOAuthProvider(server.URL)
	if _, _, err := p.ExchangeCode(context.Background(), "demo.myshopify.com", "bad-code"); err == nil {
		t.Error("expected error on 400 response, got nil")
	}
}

// TestExchangeCode_EmptyToken は空トークン応答がエラーになることをテストする。
func TestExchangeCode_EmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":""}`))
	}))
	defer server.Close()

	p := newTestOAuthProvider(server.URL)
	if _, _, err := p.ExchangeCode(context.Background(), "demo.myshopify.com", "auth-code"); err == nil {
		t.Error("expected error on empty token, got nil")
	}
}
