// Package http is the fluent outbound HTTP client used to call the identity
// provider and other upstream APIs.
//
//	resp, err := http.Get(ctx, config.IdentityUserinfoURL()).
//	    Bearer(providerToken).
//	    Timeout(5 * time.Second).
//	    Retry(3, 200*time.Millisecond).
//	    Send()
//	if err != nil { ... }
//	var info Userinfo
//	err = resp.JSON(&info)
//
// Only transport failures and 5xx responses are retried; a 4xx is returned
// to the caller on the first attempt.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"time"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

const maxResponseBytes = 4 << 20

var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is shared by every outbound request. Tests swap its
// Transport and restore it with ResetTransport:
//
//	http.DefaultClient.Transport = testkit.NewMockTransport(scenario)
//	defer http.ResetTransport()
var DefaultClient = &gohttp.Client{Transport: defaultTransport}

// ResetTransport restores the production transport on DefaultClient.
func ResetTransport() {
	DefaultClient.Transport = defaultTransport
}

// Request is a fluent request builder.
type Request struct {
	ctx       context.Context
	method    string
	url       string
	headers   gohttp.Header
	body      any
	timeout   time.Duration
	attempts  int
	retryWait time.Duration
}

func Get(ctx context.Context, url string) *Request  { return newRequest(ctx, gohttp.MethodGet, url) }
func Post(ctx context.Context, url string) *Request { return newRequest(ctx, gohttp.MethodPost, url) }

func newRequest(ctx context.Context, method, url string) *Request {
	h := gohttp.Header{}
	h.Set("Accept", "application/json")
	return &Request{
		ctx:       ctx,
		method:    method,
		url:       url,
		headers:   h,
		timeout:   10 * time.Second,
		attempts:  1,
		retryWait: 200 * time.Millisecond,
	}
}

func (r *Request) Header(key, value string) *Request {
	r.headers.Set(key, value)
	return r
}

// Bearer sets Authorization: Bearer <token>.
func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// Body sets the payload. Strings and byte slices are sent raw; anything
// else is encoded as JSON.
func (r *Request) Body(v any) *Request {
	r.body = v
	return r
}

// Timeout bounds each attempt.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry sets the total number of attempts and the initial backoff, which
// doubles after each failure.
func (r *Request) Retry(attempts int, wait time.Duration) *Request {
	if attempts < 1 {
		attempts = 1
	}
	r.attempts, r.retryWait = attempts, wait
	return r
}

// Send executes the request.
func (r *Request) Send() (*Response, error) {
	var lastErr error
	wait := r.retryWait
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.do()
		switch {
		case err == nil && resp.StatusCode < 500:
			return resp, nil
		case err == nil:
			lastErr = fmt.Errorf("upstream status %d", resp.StatusCode)
			if attempt == r.attempts {
				return resp, nil
			}
		default:
			lastErr = err
		}
		if attempt == r.attempts {
			break
		}
		logger.WithCtx(r.ctx).Warn("http: retrying",
			"method", r.method, "url", r.url, "attempt", attempt, "backoff", wait, "error", lastErr)
		select {
		case <-time.After(wait):
		case <-r.ctx.Done():
			return nil, r.ctx.Err()
		}
		wait *= 2
	}
	return nil, fmt.Errorf("http: %s %s failed after %d attempt(s): %w", r.method, r.url, r.attempts, lastErr)
}

func (r *Request) do() (*Response, error) {
	body, contentType, err := r.encodeBody()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	req.Header = r.headers.Clone()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Raw: raw}, nil
}

func (r *Request) encodeBody() (io.Reader, string, error) {
	switch v := r.body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return bytes.NewBufferString(v), "text/plain", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: encode body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

func (r *Response) JSON(dest any) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

// Throw returns an error for a non-2xx response.
func (r *Response) Throw() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("http: upstream status %d: %s", r.StatusCode, bytes.TrimSpace(r.Raw))
}
