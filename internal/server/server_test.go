package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytmigrate/internal/shared"
	"golang.org/x/oauth2"
)

type fakeExchanger struct {
	code string
	err  error
}

func (f *fakeExchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.code = code
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh"}, nil
}

func TestOAuthHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ex := &fakeExchanger{}
		h := NewOAuthHandler(ex, "xyz", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=abc", nil))

		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Spotify Authorized") {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		result := <-h.Result()
		if result.Err != nil || result.Token.AccessToken != "access-abc" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("invalid state", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "xyz", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=bad&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); !errors.Is(result.Err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Err)
		}
	})

	t.Run("denied", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "xyz", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&error=access_denied", nil))

		result := <-h.Result()
		if result.Err == nil || !strings.Contains(result.Err.Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Err)
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{err: errors.New("bad code")}, "xyz", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=abc", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewOAuthHandler(&fakeExchanger{}, "xyz", "")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=abc", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("not found fallback", func(t *testing.T) {
		var hits int
		router := NewBasicRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits++
				next.ServeHTTP(w, r)
			})
		})
		router.Handle(http.MethodGet, "/cb", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		router.NotFound(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("expected fallback status, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected callback route to win, got %d", rec.Code)
		}
		if hits != 2 {
			t.Errorf("expected middleware on both routes, got %d hits", hits)
		}
	})

	t.Run("recover", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(shared.DiscardLogger()), Logging(shared.DiscardLogger()))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	t.Run("receives token", func(t *testing.T) {
		srv, err := NewCallbackServer("http://127.0.0.1:0/cb", "xyz", &fakeExchanger{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		srv.Start()

		go func() {
			resp, err := http.Get("http://" + srv.Addr() + "/cb?state=xyz&code=abc")
			if err == nil {
				resp.Body.Close()
			}
		}()

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if token.AccessToken != "access-abc" {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("times out", func(t *testing.T) {
		srv, err := NewCallbackServer("http://127.0.0.1:0/cb", "xyz", &fakeExchanger{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		srv.Start()

		if _, err := srv.Wait(context.Background(), 10*time.Millisecond); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("stray requests get a 404 and do not end the wait", func(t *testing.T) {
		srv, err := NewCallbackServer("http://127.0.0.1:0/cb", "xyz", &fakeExchanger{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		srv.Start()

		resp, err := http.Get("http://" + srv.Addr() + "/favicon.ico")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}

		if _, err := srv.Wait(context.Background(), 10*time.Millisecond); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected the server to keep waiting, got %v", err)
		}
	})

	t.Run("invalid redirect", func(t *testing.T) {
		if _, err := NewCallbackServer("::not a url", "xyz", &fakeExchanger{}, nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
