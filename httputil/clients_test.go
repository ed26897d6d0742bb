package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finn_scrooper/config"
)

func TestFetch_OK(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html>page " + r.URL.Query().Get("page") + "</html>"))
	}))
	defer srv.Close()

	f, err := NewFetcher(&config.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "finn-test/1.0"})
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	body, err := f.Fetch(context.Background(), srv.URL+"/search.html?page=2")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if body != "<html>page 2</html>" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotUA != "finn-test/1.0" {
		t.Fatalf("user agent = %q", gotUA)
	}
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFetcherWithClient(srv.Client(), "")
	_, err := f.Fetch(context.Background(), srv.URL)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", se.StatusCode)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcherWithClient(srv.Client(), "")
	if _, err := f.Fetch(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewFetcher_BadProxy(t *testing.T) {
	if _, err := NewFetcher(&config.HTTPConfig{ProxyURL: "://nope"}); err == nil {
		t.Fatalf("expected error for bad proxy url")
	}
}
