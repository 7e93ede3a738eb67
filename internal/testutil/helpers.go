// Package testutil holds small helpers shared by the HTTP and router tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// WriteDoc writes a flag document into a fresh temp dir and returns its path.
func WriteDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// ScriptedAdapter is a scriptable provider adapter for wiring tests that need
// deterministic evaluation results without a real backend.
type ScriptedAdapter struct {
	AdapterName string
	InitErr     error
	Bools       map[string]bool
	Strings     map[string]string
	EvalErr     error
}

func (a *ScriptedAdapter) Name() string { return a.AdapterName }

func (a *ScriptedAdapter) Init(context.Context) error { return a.InitErr }

func (a *ScriptedAdapter) BoolValue(_ context.Context, flagKey string, def bool, _ string) (bool, error) {
	if a.EvalErr != nil {
		return def, a.EvalErr
	}
	if v, ok := a.Bools[flagKey]; ok {
		return v, nil
	}
	return def, nil
}

func (a *ScriptedAdapter) StringValue(_ context.Context, flagKey string, def string, _ string) (string, error) {
	if a.EvalErr != nil {
		return def, a.EvalErr
	}
	if v, ok := a.Strings[flagKey]; ok {
		return v, nil
	}
	return def, nil
}
