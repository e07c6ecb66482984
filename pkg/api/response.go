package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// noContentBody replaces the empty body of a 204 answer to a non-DELETE call.
var noContentBody = []byte(`{"data": []}`)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	// Status is the reason phrase, e.g. "Not Found".
	Status string
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

func newResponse(req *http.Request, resp *http.Response, body []byte) *Response {
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     reasonPhrase(resp),
		Method:     req.Method,
		URL:        req.URL.String(),
		Header:     resp.Header,
		Body:       body,
	}
}

func reasonPhrase(resp *http.Response) string {
	if reason, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.Method, r.URL, err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// IsJSON reports whether the content type announces JSON.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType()), "json")
}

// NextPageURL returns paging.urls.nextPage, or "" when absent.
func (r *Response) NextPageURL() string {
	var env struct {
		Paging *Paging `json:"paging"`
	}
	if err := json.Unmarshal(r.Body, &env); err != nil || env.Paging == nil {
		return ""
	}
	return env.Paging.URLs.NextPage
}

func (r *Response) rewriteNoContent() {
	r.Body = append([]byte(nil), noContentBody...)
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set("Content-Type", "application/json")
}
