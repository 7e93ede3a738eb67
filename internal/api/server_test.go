package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flagmux/flagmux/internal/config"
	"github.com/flagmux/flagmux/internal/provider"
	"github.com/flagmux/flagmux/internal/router"
	"github.com/flagmux/flagmux/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultProvider:    "simple-file",
		FrontendOrigin:     "http://localhost:3000",
		RateLimitPerIP:     1000,
		SimpleFlagsFile:    "testdata/features.json",
		SegmentEnvFile:     "testdata/environment.json",
		TargetingFlagsFile: "testdata/flags.json",
	}
}

func newTestServer(t *testing.T, adapters ...provider.Adapter) http.Handler {
	t.Helper()
	if len(adapters) == 0 {
		adapters = []provider.Adapter{&testutil.ScriptedAdapter{
			AdapterName: "simple-file",
			Bools:       map[string]bool{"new-badge": true, "api-new-endpoint-enabled": false},
			Strings:     map[string]string{"cta-color": "red"},
		}}
	}
	reg := router.NewRegistry(zerolog.Nop(), adapters...)
	reg.Init(context.Background())
	return NewServer(testConfig(), reg, zerolog.Nop()).Router()
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decode response: %v\n%s", err, body)
	}
	return m
}

func TestFlagsEndpoint(t *testing.T) {
	h := newTestServer(t)

	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/flags?userId=vip"}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rr.Code, rr.Body.String())
	}

	m := decode(t, rr.Body.Bytes())
	if m["newBadge"] != true {
		t.Errorf("newBadge = %v, want true", m["newBadge"])
	}
	if m["ctaColor"] != "red" {
		t.Errorf("ctaColor = %v, want red", m["ctaColor"])
	}
	if m["apiNewEndpointEnabled"] != false {
		t.Errorf("apiNewEndpointEnabled = %v, want false", m["apiNewEndpointEnabled"])
	}
	if m["provider"] != "simple-file" {
		t.Errorf("provider = %v, want simple-file", m["provider"])
	}
}

func TestFlagsEndpoint_UnknownProviderFallsBack(t *testing.T) {
	h := newTestServer(t)

	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/flags?provider=unknown-name"}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if m := decode(t, rr.Body.Bytes()); m["provider"] != "simple-file" {
		t.Errorf("provider = %v, want configured default simple-file", m["provider"])
	}
}

func TestFlagsEndpoint_EvaluationFailureIs500(t *testing.T) {
	h := newTestServer(t, &testutil.ScriptedAdapter{
		AdapterName: "simple-file",
		EvalErr:     errors.New("backend down"),
	})

	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/flags"}).Do(t, h)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500\n%s", rr.Code, rr.Body.String())
	}
	m := decode(t, rr.Body.Bytes())
	if m["code"] != string(ErrCodeEvaluation) {
		t.Errorf("code = %v, want %s", m["code"], ErrCodeEvaluation)
	}
}

func TestFlagsEndpoint_UninitializedAdapterIs500(t *testing.T) {
	h := newTestServer(t, &testutil.ScriptedAdapter{
		AdapterName: "simple-file",
		InitErr:     errors.New("document missing"),
	})

	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/flags"}).Do(t, h)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500\n%s", rr.Code, rr.Body.String())
	}
}

func TestSecretEndpointGating(t *testing.T) {
	h := newTestServer(t, &testutil.ScriptedAdapter{
		AdapterName: "simple-file",
		Bools:       map[string]bool{"api-new-endpoint-enabled": false},
	})
	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/secret"}).Do(t, h)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}

	h = newTestServer(t, &testutil.ScriptedAdapter{
		AdapterName: "simple-file",
		Bools:       map[string]bool{"api-new-endpoint-enabled": true},
	})
	rr = (&testutil.HTTPRequest{Method: "GET", Path: "/api/secret"}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if m := decode(t, rr.Body.Bytes()); m["secret"] == nil {
		t.Error("response missing secret payload")
	}
}

func TestHelloEndpoint(t *testing.T) {
	h := newTestServer(t)
	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/hello?userId=vip"}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	m := decode(t, rr.Body.Bytes())
	if m["message"] != "New feature is ON (from backend)" {
		t.Errorf("message = %v", m["message"])
	}
}

func TestHealthzEndpoint(t *testing.T) {
	h := newTestServer(t)
	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/healthz?provider=segment-file"}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	m := decode(t, rr.Body.Bytes())
	if m["status"] != "ok" {
		t.Errorf("status = %v, want ok", m["status"])
	}
	if m["effectiveProvider"] != "segment-file" {
		t.Errorf("effectiveProvider = %v, want segment-file", m["effectiveProvider"])
	}
	providers, ok := m["providers"].(map[string]any)
	if !ok {
		t.Fatalf("providers missing: %v", m)
	}
	if providers["simple-file"] != true {
		t.Errorf("simple-file readiness = %v, want true", providers["simple-file"])
	}
	if providers["local-daemon"] != false {
		t.Errorf("local-daemon readiness = %v, want false", providers["local-daemon"])
	}
}

func TestDiagEndpointNeverFails(t *testing.T) {
	// segment-online is not registered at all; the diag route still answers
	// 200 with ok=false and the failure detail.
	h := newTestServer(t)
	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/diag/segment-online"}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	m := decode(t, rr.Body.Bytes())
	if m["ok"] != false {
		t.Errorf("ok = %v, want false", m["ok"])
	}
	if m["error"] == nil {
		t.Error("response missing error detail")
	}
}

func TestTargetingFileHashEndpoint(t *testing.T) {
	path := testutil.WriteDoc(t, "flags.json", `{"flagValues":{"new-badge":true}}`)
	cfg := testConfig()
	cfg.TargetingFlagsFile = path

	reg := router.NewRegistry(zerolog.Nop())
	reg.Init(context.Background())
	h := NewServer(cfg, reg, zerolog.Nop()).Router()

	rr := (&testutil.HTTPRequest{Method: "GET", Path: "/api/diag/targeting-file-hash"}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	m := decode(t, rr.Body.Bytes())
	if m["exists"] != true {
		t.Fatalf("exists = %v, want true", m["exists"])
	}
	sum, _ := m["sha256"].(string)
	if len(sum) != 64 {
		t.Errorf("sha256 = %q, want 64 hex chars", sum)
	}
	if _, ok := m["mtime"].(float64); !ok {
		t.Errorf("mtime missing or not numeric: %v", m["mtime"])
	}
}
