package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RequestOption customizes one call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	params    url.Values
	json      any
	form      url.Values
	orgAccess bool
	headers   http.Header
}

func newRequestOptions(opts []RequestOption) *requestOptions {
	ro := &requestOptions{}
	for _, opt := range opts {
		opt(ro)
	}
	return ro
}

// withoutBody returns a copy for continuation requests: same params, flags
// and headers, no body.
func (ro *requestOptions) withoutBody() *requestOptions {
	out := *ro
	out.json = nil
	out.form = nil
	return &out
}

// WithParams adds query parameters. Keys already present in the path's
// query string are replaced.
func WithParams(params url.Values) RequestOption {
	return func(ro *requestOptions) {
		if ro.params == nil {
			ro.params = url.Values{}
		}
		for k, vs := range params {
			ro.params[k] = append([]string(nil), vs...)
		}
	}
}

// WithParam adds a single query parameter.
func WithParam(key, value string) RequestOption {
	return WithParams(url.Values{key: {value}})
}

// WithJSON sends v as the JSON request body. It takes precedence over WithForm.
func WithJSON(v any) RequestOption {
	return func(ro *requestOptions) { ro.json = v }
}

// WithForm sends values form-encoded. Ignored when WithJSON is also given.
func WithForm(values url.Values) RequestOption {
	return func(ro *requestOptions) { ro.form = values }
}

// WithOrgAccess runs the call at organization scope.
func WithOrgAccess() RequestOption {
	return func(ro *requestOptions) { ro.orgAccess = true }
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) RequestOption {
	return func(ro *requestOptions) {
		if ro.headers == nil {
			ro.headers = http.Header{}
		}
		ro.headers.Set(key, value)
	}
}

// buildURL qualifies path against the base URL. Absolute URLs on the session
// base URL or on a host under the base domain (nextPage links) are reduced to
// their path first; relative paths are never rewritten.
func (s *Session) buildURL(path string) string {
	if rest, ok := strings.CutPrefix(path, s.baseURL); ok {
		path = rest
	} else if u, err := url.Parse(path); err == nil && u.IsAbs() && s.onDomain(u.Hostname()) {
		path = u.RequestURI()
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.baseURL + path
}

func (s *Session) onDomain(host string) bool {
	if s.domain == "" || host == "" {
		return false
	}
	return host == s.domain || strings.HasSuffix(host, "."+s.domain)
}

// newRequest builds the HTTP request and returns the encoded body for logging.
func (s *Session) newRequest(ctx context.Context, method, path string, ro *requestOptions) (*http.Request, []byte, error) {
	u, err := url.Parse(s.buildURL(path))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if len(ro.params) > 0 {
		q := u.Query()
		for k, vs := range ro.params {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}

	var (
		body        []byte
		contentType string
	)
	switch {
	case ro.json != nil:
		body, err = json.Marshal(ro.json)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		contentType = "application/json"
	case ro.form != nil:
		body = []byte(ro.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, body, nil
}
