package security

import (
	"net/http"
	"testing"
	"time"
)

// TestNewSSRFGuard はSSRFGuardの生成をテストする。
func TestNewSSRFGuard(t *testing.T) {
	guard := NewSSRFGuard()
	if guard == nil {
		t.Fatal("NewSSRFGuard() returned nil")
	}
}

// TestNewSafeClient はSSRF防止付きHTTPクライアントの生成をテストする。
func TestNewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()
	client := guard.NewSafeClient(10*time.Second, 5*1024*1024)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
}

// TestNewSafeClientTimeout はタイムアウト設定が反映されることをテストする。
func TestNewSafeClientTimeout(t *testing.T) {
	guard := NewSSRFGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout, 5*1024*1024)
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
}

// TestNewSafeClientHasTransport はSafeClientにカスタムTransportが設定されていることをテストする。
func TestNewSafeClientHasTransport(t *testing.T) {
	guard := NewSSRFGuard()
	client := guard.NewSafeClient(5*time.Second, 5*1024*1024)

	if client.Transport == nil {
		t.Fatal("expected custom Transport to be set, got nil")
	}
	if client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport, got http.DefaultTransport")
	}
}

// TestValidateURL_AllowedURLs は正当なメディアURLが許可されることをテストする。
func TestValidateURL_AllowedURLs(t *testing.T) {
	guard := NewSSRFGuard()

	urls := []string{
		"https://scontent.cdninstagram.com/v/video.mp4",
		"https://cdn.shopify.com/videos/c/o/v/abc123.mp4",
		"http://example.com/media.mp4",
		"https://8.8.8.8/video.mp4",
	}
	for _, u := range urls {
		if err := guard.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}
}

// TestValidateURL_BlockedURLs は危険なURLが拒否されることをテストする。
func TestValidateURL_BlockedURLs(t *testing.T) {
	guard := NewSSRFGuard()

	urls := []string{
		"",
		"ftp://example.com/video.mp4",
		"javascript:alert(1)",
		"file:///etc/passwd",
		"http://localhost/video.mp4",
		"http://127.0.0.1/video.mp4",
		"http://10.0.0.5/video.mp4",
		"http://172.16.0.1/video.mp4",
		"http://192.168.1.1/video.mp4",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/video.mp4",
		"http://",
	}
	for _, u := range urls {
		if err := guard.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}
