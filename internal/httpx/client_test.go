package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
)

func TestDoJSONDoesNotRetryServerError(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"x"}`))
	}))
	defer srv.Close()

	client := New(2 * time.Second)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	var out map[string]any
	_, err = client.DoJSON(context.Background(), req, &out)
	if !clierr.Is(err, clierr.CodeUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if !strings.Contains(err.Error(), ": x") {
		t.Fatalf("expected server detail in error, got %v", err)
	}
	if atomic.LoadInt32(&count) != 1 {
		t.Fatalf("expected a single request, got %d", count)
	}
}

func TestDoJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out map[string]any
	if _, err := DoBodyJSON(context.Background(), New(time.Second), http.MethodPost, srv.URL, []byte(`{}`), nil, &out); err != nil {
		t.Fatalf("DoBodyJSON failed: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected response: %#v", out)
	}
}

func TestRateLimitAndAuth(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client := New(time.Second)
	if _, err := GetBytes(context.Background(), client, srv.URL); !clierr.Is(err, clierr.CodeRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	status = http.StatusForbidden
	if _, err := GetBytes(context.Background(), client, srv.URL); !clierr.Is(err, clierr.CodeAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestPostText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write([]byte(strings.ToUpper(string(body))))
	}))
	defer srv.Close()

	out, err := PostText(context.Background(), New(time.Second), srv.URL, "abcd")
	if err != nil {
		t.Fatalf("PostText failed: %v", err)
	}
	if string(out) != "ABCD" {
		t.Fatalf("unexpected body: %s", out)
	}
}
