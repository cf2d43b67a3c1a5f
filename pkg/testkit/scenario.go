// Package testkit runs JSON-described API scenarios against an http.Handler.
//
// A scenario file holds one scenario object or an array of them:
//
//	[{
//	  "name": "sign in with a valid provider token",
//	  "method": "POST",
//	  "url": "/api/auth/google",
//	  "body": {"access_token": "good"},
//	  "expectedStatus": 200,
//	  "expect": {"status": "success"},
//	  "httpMocks": [{
//	    "matchUrl": "https://idp.test/userinfo",
//	    "status": 200,
//	    "body": {"sub": "g-1", "email": "a@example.com"}
//	  }]
//	}]
//
// Strings in url, headers and body may reference variables as {{name}};
// they are substituted from the Vars passed to Run or RunDir.
package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Scenario is one API call and its expected outcome.
type Scenario struct {
	Name    string            `json:"name"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	// Body is sent verbatim. BodyFile, relative to the scenario file, wins
	// when both are set.
	Body     json.RawMessage `json:"body"`
	BodyFile string          `json:"bodyFile"`

	ExpectedStatus int `json:"expectedStatus"`
	// Expect must be a subset of the decoded response body.
	Expect json.RawMessage `json:"expect"`

	HTTPMocks []HTTPMock `json:"httpMocks"`
	// RequireMocks fails any outbound call that matches no mock.
	RequireMocks bool `json:"requireMocks"`

	dir string
}

// HTTPMock answers outbound requests whose URL starts with MatchURL.
type HTTPMock struct {
	MatchURL string          `json:"matchUrl"`
	Status   int             `json:"status"`
	Body     json.RawMessage `json:"body"`
	// Optional mocks are not required to be called.
	Optional bool `json:"optional"`
}

// Load reads the scenarios in path.
func Load(path string) ([]*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var scenarios []*Scenario
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(data, &scenarios)
	} else {
		var s Scenario
		err = json.Unmarshal(data, &s)
		scenarios = []*Scenario{&s}
	}
	if err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}

	for i, s := range scenarios {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: %s[%d]: %w", filepath.Base(abs), i, err)
		}
		s.dir = filepath.Dir(abs)
	}
	return scenarios, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.URL == "" {
		return fmt.Errorf("url is required")
	}
	if s.ExpectedStatus == 0 {
		return fmt.Errorf("expectedStatus is required")
	}
	if s.Method == "" {
		s.Method = "GET"
	}
	return nil
}

func (s *Scenario) body() ([]byte, error) {
	if s.BodyFile != "" {
		p := s.BodyFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(s.dir, p)
		}
		return os.ReadFile(p)
	}
	return s.Body, nil
}
