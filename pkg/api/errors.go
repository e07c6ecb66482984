package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrMalformedResponse is matched by every *MalformedResponseError.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNoMorePages is returned by Pager.NextPage once the last page was read.
	ErrNoMorePages = errors.New("no more pages")

	ErrMissingAccount     = errors.New("lacework: account is required")
	ErrMissingCredentials = errors.New("lacework: api key and api secret are required")
)

const unknownErrorMessage = "Unknown Error"

// APIError is returned for any response outside 200, 201 and 204.
type APIError struct {
	StatusCode int
	Status     string
	Body       map[string]any
	Message    string
	Response   *Response
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lacework api returned %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// RateLimitError is returned for 429 responses. The session never retries
// these; callers choose their own backoff, optionally from RetryAfter.
type RateLimitError struct {
	*APIError
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("lacework api rate limit exceeded: %s", e.Message)
}

func (e *RateLimitError) Unwrap() error { return e.APIError }

// RetryAfter parses the Retry-After header (seconds or HTTP date).
func (e *RateLimitError) RetryAfter() (time.Duration, bool) {
	if e.Response == nil {
		return 0, false
	}
	v := e.Response.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0), true
	}
	return 0, false
}

// MalformedResponseError reports a successful response whose body does not
// have the expected shape.
type MalformedResponseError struct {
	URL    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.URL, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// newAPIError builds the normalized error for resp. A JSON body that fails to
// parse is logged and leaves Body empty.
func newAPIError(resp *Response, logger *zap.Logger) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    unknownErrorMessage,
		Response:   resp,
	}
	if !resp.IsJSON() {
		return apiErr
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		logger.Warn("lacework.error_body_unparsable",
			zap.Int("status", resp.StatusCode),
			zap.String("url", resp.URL),
			zap.Error(err))
		return apiErr
	}
	apiErr.Body = body
	apiErr.Message = extractMessage(body)
	return apiErr
}

// extractMessage prefers data.message, then message.
func extractMessage(body map[string]any) string {
	if data, ok := body["data"].(map[string]any); ok {
		if msg, ok := data["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if msg, ok := body["message"].(string); ok && msg != "" {
		return msg
	}
	return unknownErrorMessage
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsRateLimited reports whether err is a *RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
