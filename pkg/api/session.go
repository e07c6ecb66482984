// Package api implements the authenticated HTTP session shared by every
// Lacework resource wrapper: bearer token lifecycle, header attachment,
// transport retries, response validation and pagination.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Checker-Finance/lacework-go-sdk/internal/httpclient"
	"github.com/Checker-Finance/lacework-go-sdk/internal/metrics"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/utils"
)

// Session is one authenticated connection to a Lacework account. It is safe
// for concurrent use; a Pager obtained from it is not.
type Session struct {
	baseURL     string
	domain      string
	account     string
	apiKey      string
	apiSecret   string
	tokenExpiry time.Duration

	http   *http.Client
	logger *zap.Logger
	store  TokenStore
	pacer  Pacer
	now    func() time.Time

	// mu serializes the token check-and-refresh.
	mu           sync.Mutex
	token        Token
	forceRefresh bool

	settingsMu sync.RWMutex
	subaccount string
	orgAccess  bool
}

// New validates cfg and builds a Session. No request is sent until the first call.
func New(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if cfg.Account == "" && cfg.BaseURL == "" {
		return nil, ErrMissingAccount
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}

	account := normalizeAccount(cfg.Account, cfg.BaseDomain)
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.%s", account, cfg.BaseDomain)
	}

	retry := *cfg.Retry
	if retry.AttemptTimeout <= 0 {
		retry.AttemptTimeout = cfg.Timeout
	}

	return &Session{
		baseURL:     baseURL,
		domain:      cfg.BaseDomain,
		account:     account,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		tokenExpiry: cfg.TokenExpiry,
		http: &http.Client{
			Transport: httpclient.NewRetryTransport(cfg.Transport, retry, cfg.Logger),
		},
		logger:     cfg.Logger,
		store:      cfg.TokenStore,
		pacer:      cfg.RateLimiter,
		now:        time.Now,
		subaccount: cfg.Subaccount,
		orgAccess:  cfg.OrgLevelAccess,
	}, nil
}

// normalizeAccount strips a scheme and the base domain from account, so that
// "https://acme.lacework.net" and "acme.lacework.net" both become "acme".
func normalizeAccount(account, domain string) string {
	account = strings.TrimPrefix(account, "https://")
	account = strings.TrimPrefix(account, "http://")
	account = strings.TrimSuffix(account, "/")
	return strings.TrimSuffix(account, "."+domain)
}

// BaseURL returns the URL every path is qualified against.
func (s *Session) BaseURL() string { return s.baseURL }

// Account returns the normalized account name.
func (s *Session) Account() string { return s.account }

// Subaccount returns the sub-account sent in the Account-Name header.
func (s *Session) Subaccount() string {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.subaccount
}

// SetSubaccount switches the sub-account for subsequent calls; "" clears it.
func (s *Session) SetSubaccount(name string) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.subaccount = name
}

// OrgLevelAccess reports the session-wide Org-Access default.
func (s *Session) OrgLevelAccess() bool {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.orgAccess
}

// SetOrgLevelAccess toggles organization scope for every subsequent call.
func (s *Session) SetOrgLevelAccess(enabled bool) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.orgAccess = enabled
}

// CloseIdleConnections releases pooled connections.
func (s *Session) CloseIdleConnections() {
	s.http.CloseIdleConnections()
}

// Get sends a GET request.
func (s *Session) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return s.Do(ctx, http.MethodGet, path, opts...)
}

// Post sends a POST request.
func (s *Session) Post(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return s.Do(ctx, http.MethodPost, path, opts...)
}

// Patch sends a PATCH request.
func (s *Session) Patch(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return s.Do(ctx, http.MethodPatch, path, opts...)
}

// Put sends a PUT request.
func (s *Session) Put(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return s.Do(ctx, http.MethodPut, path, opts...)
}

// Delete sends a DELETE request. A 204 answer is returned with its empty body.
func (s *Session) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return s.Do(ctx, http.MethodDelete, path, opts...)
}

// Do performs one logical API call: pace, ensure a valid token, attach
// headers, dispatch through the retrying transport and validate the status.
// path may be relative or a full URL previously returned by the API.
func (s *Session) Do(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	return s.do(ctx, method, path, newRequestOptions(opts))
}

func (s *Session) do(ctx context.Context, method, path string, ro *requestOptions) (*Response, error) {
	if s.pacer != nil {
		if err := s.pacer.Wait(ctx, s.account); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	token, err := s.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	req, body, err := s.newRequest(ctx, method, path, ro)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req, token, ro)

	return s.send(req, body)
}

func (s *Session) setHeaders(req *http.Request, token Token, ro *requestOptions) {
	s.settingsMu.RLock()
	orgAccess := ro.orgAccess || s.orgAccess
	subaccount := s.subaccount
	s.settingsMu.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Org-Access", strconv.FormatBool(orgAccess))
	if subaccount != "" {
		req.Header.Set("Account-Name", subaccount)
	}
	req.Header.Set("User-Agent", UserAgent())
	req.Header.Set("Accept", "application/json")
	for k, vs := range ro.headers {
		req.Header[k] = vs
	}
}

// send dispatches req, reads the body and validates the status code. It is
// shared by regular calls and token acquisition.
func (s *Session) send(req *http.Request, reqBody []byte) (*Response, error) {
	requestID := uuid.NewString()
	start := time.Now()
	s.logRequest(requestID, req, reqBody)

	httpResp, err := s.http.Do(req)
	if err != nil {
		metrics.IncAPIRequest(req.Method, "error")
		return nil, fmt.Errorf("lacework %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer httpResp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		metrics.IncAPIRequest(req.Method, "error")
		return nil, fmt.Errorf("lacework %s %s: read body: %w", req.Method, req.URL.Path, err)
	}

	metrics.IncAPIRequest(req.Method, strconv.Itoa(httpResp.StatusCode))
	metrics.ObserveDuration(metrics.APIRequestDuration, start, req.Method)

	resp := newResponse(req, httpResp, body)
	s.logResponse(requestID, resp, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	case http.StatusTooManyRequests:
		return nil, &RateLimitError{APIError: newAPIError(resp, s.logger)}
	default:
		return nil, newAPIError(resp, s.logger)
	}

	if resp.StatusCode == http.StatusNoContent && req.Method != http.MethodDelete {
		resp.rewriteNoContent()
	}
	return resp, nil
}

// ─── Debug tracing ───────────────────────────────────────────────────────────

var maskedHeaders = map[string]func(string) string{
	"Authorization": utils.MaskBearer,
	"X-Lw-Uaks":     utils.MaskSecret,
}

func (s *Session) logRequest(requestID string, req *http.Request, body []byte) {
	if !s.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	s.logger.Debug("lacework.request",
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Any("headers", headerFields(req.Header)),
		zap.String("body", formatBody(req.Header.Get("Content-Type"), body)))
}

func (s *Session) logResponse(requestID string, resp *Response, elapsed time.Duration) {
	if !s.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	body := formatBody(resp.ContentType(), resp.Body)
	if strings.HasSuffix(strings.SplitN(resp.URL, "?", 2)[0], tokenPath) {
		body = "<redacted>"
	}
	s.logger.Debug("lacework.response",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.String("url", resp.URL),
		zap.Duration("elapsed", elapsed),
		zap.Any("headers", headerFields(resp.Header)),
		zap.String("body", body))
}

func headerFields(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		v := h.Get(k)
		if mask, ok := maskedHeaders[http.CanonicalHeaderKey(k)]; ok {
			v = mask(v)
		}
		out[k] = v
	}
	return out
}

// formatBody pretty-prints JSON bodies and returns anything else verbatim.
func formatBody(contentType string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if strings.Contains(strings.ToLower(contentType), "json") {
		if pretty, err := json.MarshalIndent(json.RawMessage(body), "", "  "); err == nil {
			return string(pretty)
		}
	}
	return string(body)
}
