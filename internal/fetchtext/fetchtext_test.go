package fetchtext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchAcceptsMarkdownContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte("  # hello  "))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "# hello" {
		t.Errorf("got %q", body)
	}
}

func TestFetchRejectsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, ok := err.(*HTTPStatusError); !ok {
		t.Fatalf("expected *HTTPStatusError, got %T", err)
	}
}

func TestFetchSniffsJSONWithGenericContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "ok") {
		t.Errorf("got %q", body)
	}
}

func TestFetchSniffsMarkdownByURLSuffix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain body text"))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.URL+"/readme.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "plain body text" {
		t.Errorf("got %q", body)
	}
}

func TestFetchRejectsUnsupportedContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("binarydata"))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected UnsupportedContentTypeError")
	}
	if _, ok := err.(*UnsupportedContentTypeError); !ok {
		t.Fatalf("expected *UnsupportedContentTypeError, got %T", err)
	}
}

func TestFetchSetsAcceptHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "text/markdown") {
		t.Errorf("Accept header = %q", got)
	}
}
