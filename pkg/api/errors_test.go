package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func jsonResponse(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Method:     http.MethodGet,
		URL:        "https://acme.lacework.net/api/v2/Alerts",
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}
}

func TestNewAPIError_ExtractsMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"top level", `{"message":"boom"}`, "boom"},
		{"nested under data", `{"data":{"message":"nested boom"}}`, "nested boom"},
		{"nested wins", `{"data":{"message":"inner"},"message":"outer"}`, "inner"},
		{"data without message", `{"data":{"code":1},"message":"outer"}`, "outer"},
		{"no message", `{"code":7}`, unknownErrorMessage},
		{"empty message", `{"message":""}`, unknownErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newAPIError(jsonResponse(http.StatusBadRequest, tc.body), zap.NewNop())
			assert.Equal(t, tc.want, err.Message)
			assert.Equal(t, http.StatusBadRequest, err.StatusCode)
			assert.Equal(t, "Bad Request", err.Status)
			assert.NotNil(t, err.Body)
		})
	}
}

func TestNewAPIError_NonJSONBody(t *testing.T) {
	resp := jsonResponse(http.StatusBadGateway, "<html>bad gateway</html>")
	resp.Header.Set("Content-Type", "text/html")

	err := newAPIError(resp, zap.NewNop())
	assert.Equal(t, unknownErrorMessage, err.Message)
	assert.Nil(t, err.Body)
	assert.Same(t, resp, err.Response)
}

func TestNewAPIError_UnparsableJSONIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	err := newAPIError(jsonResponse(http.StatusInternalServerError, `{"message":`), zap.New(core))
	assert.Equal(t, unknownErrorMessage, err.Message)
	assert.Nil(t, err.Body)

	entries := logs.FilterMessage("lacework.error_body_unparsable").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, http.StatusInternalServerError, entries[0].ContextMap()["status"])
}

func TestAPIError_ErrorString(t *testing.T) {
	err := newAPIError(jsonResponse(http.StatusForbidden, `{"message":"denied"}`), zap.NewNop())
	assert.Equal(t, "lacework api returned 403 Forbidden: denied", err.Error())
}

func TestErrorHelpers(t *testing.T) {
	notFound := newAPIError(jsonResponse(http.StatusNotFound, `{}`), zap.NewNop())
	wrapped := fmt.Errorf("get alert: %w", notFound)

	assert.Equal(t, http.StatusNotFound, StatusCode(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsRateLimited(wrapped))
	assert.Zero(t, StatusCode(errors.New("plain")))

	limited := &RateLimitError{APIError: newAPIError(jsonResponse(http.StatusTooManyRequests, `{}`), zap.NewNop())}
	assert.True(t, IsRateLimited(fmt.Errorf("list: %w", limited)))
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(limited), "unwraps to the APIError")
}

func TestRateLimitError_RetryAfter(t *testing.T) {
	rl := &RateLimitError{APIError: newAPIError(jsonResponse(http.StatusTooManyRequests, `{}`), zap.NewNop())}
	_, ok := rl.RetryAfter()
	assert.False(t, ok)

	rl.Response.Header.Set("Retry-After", "12")
	d, ok := rl.RetryAfter()
	require.True(t, ok)
	assert.Equal(t, "12s", d.String())

	rl.Response.Header.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	d, ok = rl.RetryAfter()
	require.True(t, ok)
	assert.Zero(t, d, "dates in the past clamp to zero")

	rl.Response.Header.Set("Retry-After", "soon")
	_, ok = rl.RetryAfter()
	assert.False(t, ok)
}

func TestMalformedResponseError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("list: %w", &MalformedResponseError{URL: "u", Reason: "r"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, "list: malformed response from u: r", err.Error())
}

func TestSession_ErrorCarriesResponse(t *testing.T) {
	srv := newStubServer(t)
	srv.handle("GET /api/v2/Alerts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"data": map[string]any{"message": "bad window"}})
	})
	s := newTestSession(t, srv)

	_, err := s.Get(context.Background(), "/api/v2/Alerts")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad window", apiErr.Message)
	require.NotNil(t, apiErr.Response)
	assert.Equal(t, http.MethodGet, apiErr.Response.Method)
	assert.Contains(t, apiErr.Response.URL, "/api/v2/Alerts")
}
