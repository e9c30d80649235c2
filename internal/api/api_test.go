package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoEncodesJSONAgainstBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Default") != "1" {
			t.Error("Expected default header to be sent")
		}
		if r.URL.Path != "/v1/x" {
			t.Errorf("Expected path /v1/x, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/v1"), WithHeader("X-Default", "1"))
	req := NewRequest(http.MethodPost, "/x").WithContext(context.Background()).WithBody(map[string]int{"a": 1})
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var out struct{ OK bool }
	if err := resp.ParseJSON(&out); err != nil || !out.OK {
		t.Errorf("Expected ok response, got %s (%v)", resp.Body, err)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient().Do(NewRequest(http.MethodGet, srv.URL))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadRequest || se.Retryable() {
		t.Errorf("Expected non-retryable 400, got %d", se.StatusCode)
	}
}

func TestDoWithRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	c := NewClient()
	req := NewRequest(http.MethodGet, srv.URL).WithContext(context.Background())
	resp, err := c.DoWithRetry(req, &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "done" || calls != 3 {
		t.Errorf("Expected success on third attempt, got %q after %d calls", resp.Body, calls)
	}
}

func TestDoWithRetryStopsOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	req := NewRequest(http.MethodGet, srv.URL).WithContext(context.Background())
	if _, err := NewClient().DoWithRetry(req, &RetryConfig{MaxAttempts: 5, InitialWait: time.Millisecond}); err == nil {
		t.Error("Expected error on 401")
	}
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}

func TestDoWithRetryNilConfigMakesOneAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(WithBaseURL(srv.URL)).DoWithRetry(NewRequest(http.MethodGet, ""), nil); err == nil {
		t.Error("Expected error on 503")
	}
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}
