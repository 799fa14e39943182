package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) *RestySession {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{BaseURL: srv.URL}
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := NewSession(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_GetWithParams(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, []string{"a", "b"}, r.URL.Query()["tag"])
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Firefox")
		w.Write([]byte("hello"))
	}, nil)

	resp, err := s.Do(context.Background(), &Request{
		Path:    "/items",
		Params:  map[string]any{"page": float64(2), "tag": []any{"a", "b"}},
		Headers: map[string]string{"X-Test": "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", resp.Text)
}

func TestSession_PostBodies(t *testing.T) {
	var contentType, body string
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
	}, nil)
	ctx := context.Background()

	_, err := s.Do(ctx, &Request{Method: "post", Path: "/", Form: map[string]string{"q": "x"}})
	require.NoError(t, err)
	assert.Contains(t, contentType, "application/x-www-form-urlencoded")
	assert.Equal(t, "q=x", body)

	_, err = s.Do(ctx, &Request{Method: "POST", Path: "/", JSON: map[string]any{"a": 1}})
	require.NoError(t, err)
	assert.Contains(t, contentType, "application/json")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Equal(t, float64(1), decoded["a"])

	_, err = s.Do(ctx, &Request{Method: "POST", Path: "/", Body: "raw"})
	require.NoError(t, err)
	assert.Equal(t, "raw", body)
}

func TestSession_NonOKStatusIsReturned(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	resp, err := s.Do(context.Background(), &Request{Path: "/missing"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSession_Timeout(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, nil)

	_, err := s.Do(context.Background(), &Request{Path: "/", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequest))
}

func TestSession_CookiesPersist(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "42", Path: "/"})
			return
		}
		c, err := r.Cookie("sid")
		if err != nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(c.Value))
	}, nil)
	ctx := context.Background()

	_, err := s.Do(ctx, &Request{Path: "/login"})
	require.NoError(t, err)

	resp, err := s.Do(ctx, &Request{Path: "/me"})
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Text)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Do(context.Background(), &Request{Path: "/"})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{BaseURL: "https://example.com", HTTPVersion: "2", Impersonate: "chrome"}, false},
		{"missing base url", Config{}, true},
		{"bad version", Config{BaseURL: "https://example.com", HTTPVersion: "4"}, true},
		{"bad profile", Config{BaseURL: "https://example.com", Impersonate: "lynx"}, true},
		{"negative rate", Config{BaseURL: "https://example.com", RateLimit: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	// "café" в ISO-8859-1
	latin := []byte{'c', 'a', 'f', 0xe9}

	assert.Equal(t, "café", DecodeBody(latin, "text/html; charset=ISO-8859-1", ""))
	assert.Equal(t, "café", DecodeBody(latin, "text/html", "latin1"))
	assert.Equal(t, "plain", DecodeBody([]byte("plain"), "", EncodingAuto))
	assert.Equal(t, "x", DecodeBody([]byte("x"), "", "no-such-charset"))
}

func TestResponse_JSON(t *testing.T) {
	v, err := (&Response{Text: `{"a":[1,2]}`}).JSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}}, v)

	_, err = (&Response{Text: "not json"}).JSON()
	assert.Error(t, err)
}
