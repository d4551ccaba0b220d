package shared

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurl(t *testing.T) {
	tt := []struct {
		name        string
		curl        string
		wantHeaders map[string]string
		wantCookie  string
		wantErr     bool
	}{
		{
			name:        "single quoted cookie header",
			curl:        `curl 'https://music.youtube.com' -H 'Cookie: SAPISID=abc'`,
			wantHeaders: map[string]string{},
			wantCookie:  "SAPISID=abc",
		},
		{
			name:        "double quoted headers are lower-cased",
			curl:        `curl "https://music.youtube.com" -H "X-Goog-AuthUser: 1" -H "cookie: a=b"`,
			wantHeaders: map[string]string{"x-goog-authuser": "1"},
			wantCookie:  "a=b",
		},
		{
			name:        "cookie flag wins over cookie header",
			curl:        `curl https://music.youtube.com -H 'cookie: old=1' -b 'new=2'`,
			wantHeaders: map[string]string{},
			wantCookie:  "new=2",
		},
		{
			name:        "long flags",
			curl:        `curl https://music.youtube.com --header 'authorization: SAPISIDHASH 1_x' --cookie 'a=b'`,
			wantHeaders: map[string]string{"authorization": "SAPISIDHASH 1_x"},
			wantCookie:  "a=b",
		},
		{
			name: "line continuations and dropped headers",
			curl: "curl 'https://music.youtube.com' \\\n" +
				"  -H 'accept-encoding: gzip' \\\n" +
				"  -H 'content-type: application/json' \\\n" +
				"  -H 'user-agent: Mozilla/5.0' \\\n" +
				"  -b 'a=b'",
			wantHeaders: map[string]string{"user-agent": "Mozilla/5.0"},
			wantCookie:  "a=b",
		},
		{
			name:        "header value containing a colon",
			curl:        `curl -H 'origin: https://music.youtube.com' -b 'a=b'`,
			wantHeaders: map[string]string{"origin": "https://music.youtube.com"},
			wantCookie:  "a=b",
		},
		{
			name:    "no cookie",
			curl:    `curl -H 'user-agent: Mozilla/5.0' https://music.youtube.com`,
			wantErr: true,
		},
		{
			name:    "empty input",
			curl:    "",
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCurl([]byte(tc.curl))
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Fatalf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Cookie != tc.wantCookie {
				t.Errorf("cookie = %q, want %q", got.Cookie, tc.wantCookie)
			}
			if len(got.Headers) != len(tc.wantHeaders) {
				t.Errorf("headers = %v, want %v", got.Headers, tc.wantHeaders)
			}
			for k, v := range tc.wantHeaders {
				if got.Headers[k] != v {
					t.Errorf("header %q = %q, want %q", k, got.Headers[k], v)
				}
			}
		})
	}
}

func TestBrowserHeaders(t *testing.T) {
	t.Run("ReadCurlFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "request.sh")
		if err := os.WriteFile(path, []byte(`curl -b 'a=b'`), 0600); err != nil {
			t.Fatal(err)
		}

		h, err := ReadCurlFile(path)
		if err != nil {
			t.Fatalf("ReadCurlFile failed: %v", err)
		}
		if h.Cookie != "a=b" {
			t.Errorf("unexpected cookie %q", h.Cookie)
		}
	})

	t.Run("ReadCurlFile missing file", func(t *testing.T) {
		if _, err := ReadCurlFile(filepath.Join(t.TempDir(), "missing.sh")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("WriteFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "headers.json")
		h := &BrowserHeaders{Headers: map[string]string{"x-goog-authuser": "0"}, Cookie: "a=b"}

		if err := h.WriteFile(path); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("headers file missing: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
		}

		data, _ := os.ReadFile(path)
		var got map[string]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got["cookie"] != "a=b" || got["x-goog-authuser"] != "0" {
			t.Errorf("unexpected contents %v", got)
		}
	})
}
