package router

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/relaymcp/relaymcp/internal/registry"
)

func TestRouter_HandleStatusListsBackends(t *testing.T) {
	reg := registry.New([]registry.Backend{
		{Name: "alpha", Command: "cat", Enabled: true},
		{Name: "beta", Command: "cat", Enabled: true},
	}, nil)
	r := New(reg, Options{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/status", nil)
	r.handleStatus(rec, req)

	var body struct {
		Status   string   `json:"status"`
		Backends []string `json:"backends"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal status body: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("status = %q, want ok", body.Status)
	}
	if len(body.Backends) != 2 || body.Backends[0] != "alpha" || body.Backends[1] != "beta" {
		t.Fatalf("backends = %v, want [alpha beta]", body.Backends)
	}
}

func TestRouter_AddrBeforeStartReturnsConfiguredAddr(t *testing.T) {
	reg := registry.New(nil, nil)
	r := New(reg, Options{Addr: "127.0.0.1:9999"})
	if got := r.Addr(); got != "127.0.0.1:9999" {
		t.Fatalf("Addr() = %q, want 127.0.0.1:9999", got)
	}
}

func TestRouter_New_DefaultsAddrAndLogger(t *testing.T) {
	reg := registry.New(nil, nil)
	r := New(reg, Options{})
	if r.opts.Addr == "" {
		t.Fatal("expected a default Addr to be set")
	}
	if r.logger == nil {
		t.Fatal("expected a default logger to be set")
	}
}

func TestRouter_ShutdownWithoutStartIsSafe(t *testing.T) {
	reg := registry.New(nil, nil)
	r := New(reg, Options{})
	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
