package testkit

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	outbound "github.com/shashiranjanraj/shopkart/pkg/http"
)

// Vars are substituted for {{name}} placeholders in scenarios.
type Vars map[string]string

func (v Vars) expand(s string) string {
	for k, val := range v {
		s = strings.ReplaceAll(s, "{{"+k+"}}", val)
	}
	return s
}

// Run executes every scenario in path as a subtest, in file order.
func Run(t *testing.T, handler http.Handler, path string, vars Vars) {
	t.Helper()
	scenarios, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) { run(t, handler, s, vars) })
	}
}

// RunDir runs every *.json scenario file in dir, sorted by name.
func RunDir(t *testing.T, handler http.Handler, dir string, vars Vars) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		t.Fatalf("testkit: no scenario files in %q", dir)
	}
	for _, f := range files {
		Run(t, handler, f, vars)
	}
}

func run(t *testing.T, handler http.Handler, s *Scenario, vars Vars) {
	t.Helper()

	raw, err := s.body()
	if err != nil {
		t.Fatalf("[%s] read body: %v", s.Name, err)
	}
	var body io.Reader
	if len(raw) > 0 {
		body = strings.NewReader(vars.expand(string(raw)))
	}

	mt := NewMockTransport(s)
	outbound.DefaultClient.Transport = mt
	defer outbound.ResetTransport()

	req := httptest.NewRequest(strings.ToUpper(s.Method), vars.expand(s.URL), body)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range s.Headers {
		req.Header.Set(k, vars.expand(v))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, s.ExpectedStatus, rec.Code, "[%s] status; body: %s", s.Name, bytes.TrimSpace(rec.Body.Bytes()))
	AssertSubset(t, s.Name, []byte(vars.expand(string(s.Expect))), rec.Body.Bytes())
	for _, err := range mt.Uncalled() {
		t.Errorf("[%s] %v", s.Name, err)
	}
}
