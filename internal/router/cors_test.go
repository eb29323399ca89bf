package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorsAllower_AllowList(t *testing.T) {
	c := newCORSAllower([]string{"https://allowed.example"})

	if !c.allowed("https://allowed.example") {
		t.Fatal("expected the listed origin to be allowed")
	}
	if c.allowed("https://other.example") {
		t.Fatal("expected an unlisted origin to be rejected")
	}
	if c.allowed("") {
		t.Fatal("expected an empty origin to be rejected")
	}
}

func TestCorsAllower_WildcardAllowsAnyOrigin(t *testing.T) {
	c := newCORSAllower([]string{"*"})
	if !c.allowed("https://anything.example") {
		t.Fatal("expected '*' to allow any origin")
	}
}

func TestCorsAllower_EmptyListAllowsNothing(t *testing.T) {
	c := newCORSAllower(nil)
	if c.allowed("https://anything.example") {
		t.Fatal("expected an empty allow-list to reject every origin")
	}
}

func TestCorsAllower_ApplyWritesHeadersOnlyWhenAllowed(t *testing.T) {
	c := newCORSAllower([]string{"https://allowed.example"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://allowed.example")

	if !c.apply(rec, req) {
		t.Fatal("expected apply to report true for an allowed origin")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://allowed.example" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/status", nil)
	req2.Header.Set("Origin", "https://blocked.example")
	if c.apply(rec2, req2) {
		t.Fatal("expected apply to report false for a disallowed origin")
	}
	if got := rec2.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header for a disallowed origin, got %q", got)
	}
}

func TestCorsAllower_MiddlewareHandlesPreflight(t *testing.T) {
	c := newCORSAllower([]string{"https://allowed.example"})
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	h := c.middleware(next)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "https://allowed.example")
	h.ServeHTTP(rec, req)

	if called {
		t.Fatal("OPTIONS preflight should not reach the wrapped handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestCorsAllower_MiddlewarePassesThroughNonPreflight(t *testing.T) {
	c := newCORSAllower([]string{"*"})
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	h := c.middleware(next)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected a non-OPTIONS request to reach the wrapped handler")
	}
}
