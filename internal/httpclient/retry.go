package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/lacework-go-sdk/internal/metrics"
)

const (
	// DefaultMaxAttempts is the total number of attempts, the first one included.
	DefaultMaxAttempts = 3
	// DefaultBackoffBase is the sleep before the first retry; each later retry doubles it.
	DefaultBackoffBase = 300 * time.Millisecond
)

// RetryPolicy describes which attempts the RetryTransport repeats and how long it waits.
type RetryPolicy struct {
	MaxAttempts   int
	BackoffBase   time.Duration
	RetryStatuses []int

	// RetryMethods lists the verbs eligible for retry. Every verb the SDK
	// sends is listed by default.
	RetryMethods []string

	// AttemptTimeout bounds each attempt, from sending the request until the
	// response body is closed. Zero means no per-attempt limit.
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the policy used by every session unless overridden.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BackoffBase: DefaultBackoffBase,
		RetryStatuses: []int{
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		RetryMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodPut,
			http.MethodDelete,
		},
	}
}

// Backoff returns the sleep duration before the given retry (1-based).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return p.BackoffBase << (retry - 1)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) retriesStatus(code int) bool {
	return slices.Contains(p.RetryStatuses, code)
}

func (p RetryPolicy) retriesMethod(method string) bool {
	return slices.Contains(p.RetryMethods, method)
}

// RetryTransport is an http.RoundTripper that repeats requests failing with a
// transient status code or a network error, sleeping with exponential backoff
// between attempts. Once the budget is spent the last response is returned
// as-is so the caller can normalize it; the last network error is wrapped.
type RetryTransport struct {
	base   http.RoundTripper
	policy RetryPolicy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryTransport wraps base (http.DefaultTransport when nil) with policy.
func NewRetryTransport(base http.RoundTripper, policy RetryPolicy, logger *zap.Logger) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryTransport{
		base:   base,
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempts := t.policy.attempts()
	if !t.policy.retriesMethod(req.Method) || !replayable(req) {
		attempts = 1
	}

	ctx := req.Context()
	for attempt := 1; ; attempt++ {
		outReq, err := rewind(req, attempt)
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}

		outReq, cancel := t.bounded(outReq)
		resp, err := t.base.RoundTrip(outReq)
		if err == nil && !t.policy.retriesStatus(resp.StatusCode) {
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				return nil, err
			}
		}

		if attempt >= attempts {
			if err != nil {
				return nil, fmt.Errorf("request failed after %d attempts: %w", attempt, err)
			}
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}

		if err != nil {
			metrics.IncRetry("network")
			t.logger.Warn("lacework.http_failed",
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			metrics.IncRetry("status")
			t.logger.Warn("lacework.server_error",
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt))
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			cancel()
		}

		if err := t.sleep(ctx, t.policy.Backoff(attempt)); err != nil {
			return nil, err
		}
	}
}

// bounded applies the per-attempt timeout to req. The returned cancel must be
// called once the attempt is finished with.
func (t *RetryTransport) bounded(req *http.Request) (*http.Request, context.CancelFunc) {
	if t.policy.AttemptTimeout <= 0 {
		return req, func() {}
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.policy.AttemptTimeout)
	return req.WithContext(ctx), cancel
}

// cancelOnClose releases the attempt context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// replayable reports whether the request body can be sent again.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns the request for the given attempt; later attempts get a fresh body.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.Body = body
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
