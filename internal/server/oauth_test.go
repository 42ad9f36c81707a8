package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://127.0.0.1:8080/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "http://127.0.0.1/authorize",
			TokenURL: tokenURL,
		},
	}
}

func TestCallbackHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		h := NewCallbackHandler(testOAuthConfig("http://unused"), "state", "/custom")
		routes := h.Routes()
		if len(routes) != 1 || routes[0] != "/custom" {
			t.Errorf("unexpected routes %v", routes)
		}

		h = NewCallbackHandler(testOAuthConfig("http://unused"), "state", "")
		if h.Routes()[0] != "/callback" {
			t.Errorf("expected default /callback, got %v", h.Routes())
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		h := NewCallbackHandler(testOAuthConfig("http://unused"), "expected-state", "/callback")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("Authorization Denied", func(t *testing.T) {
		h := NewCallbackHandler(testOAuthConfig("http://unused"), "s", "/callback")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied&error_description=nope", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied in error, got %v", result.Error())
		}
	})

	t.Run("Successful Exchange", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"granted","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
		}))
		defer tokenSrv.Close()

		h := NewCallbackHandler(testOAuthConfig(tokenSrv.URL), "s", "/callback")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=s&code=auth-code", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Spotify Connected") {
			t.Error("expected success page")
		}

		select {
		case result := <-h.Result():
			if result.Error() != nil {
				t.Fatalf("expected no error, got %v", result.Error())
			}
			if result.Token == nil || result.Token.AccessToken != "granted" {
				t.Errorf("unexpected token %+v", result.Token)
			}
			if result.Token.RefreshToken != "refresh" {
				t.Errorf("expected refresh token, got %q", result.Token.RefreshToken)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for result")
		}
	})

	t.Run("Replay Is Rejected", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"granted","token_type":"Bearer","expires_in":3600}`)
		}))
		defer tokenSrv.Close()

		h := NewCallbackHandler(testOAuthConfig(tokenSrv.URL), "s", "/callback")

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=one", nil))
		if first.Code != http.StatusOK {
			t.Fatalf("expected 200 for first callback, got %d", first.Code)
		}

		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=two", nil))
		if second.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replay, got %d", second.Code)
		}
	})
}
