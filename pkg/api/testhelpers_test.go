package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeJSON encodes v as JSON into w with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic("test helper writeJSON: " + err.Error())
	}
}

// stubServer is a fake Lacework API. The token endpoint is built in; every
// other route is looked up in routes by "METHOD /path".
type stubServer struct {
	*httptest.Server

	tokenCalls atomic.Int32
	tokenTTL   time.Duration
	tokenFail  int // status returned by the token endpoint when non-zero
	tokenBody  map[string]any
	onToken    func(r *http.Request)

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []*http.Request
}

func newStubServer(t *testing.T) *stubServer {
	t.Helper()
	s := &stubServer{routes: map[string]http.HandlerFunc{}, tokenTTL: time.Hour}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *stubServer) handle(pattern string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[pattern] = h
}

func (s *stubServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == tokenPath {
		n := s.tokenCalls.Add(1)
		if s.onToken != nil {
			s.onToken(r)
		}
		if s.tokenBody != nil {
			writeJSON(w, http.StatusCreated, s.tokenBody)
			return
		}
		if s.tokenFail != 0 {
			writeJSON(w, s.tokenFail, map[string]any{"message": "invalid key"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"token":     fmt.Sprintf("tok-%d", n),
			"expiresAt": time.Now().Add(s.tokenTTL).UTC().Format("2006-01-02T15:04:05.000Z"),
		})
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, r.Clone(r.Context()))
	h, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "no route " + r.URL.Path})
		return
	}
	h(w, r)
}

// apiRequests returns the non-token requests received so far.
func (s *stubServer) apiRequests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// fastRetry keeps the default policy but shrinks the backoff for tests.
func fastRetry() *RetryPolicy {
	p := DefaultRetryPolicy()
	p.BackoffBase = time.Millisecond
	return &p
}

func newTestSession(t *testing.T, srv *stubServer, mutate ...func(*Config)) *Session {
	t.Helper()
	cfg := Config{
		Account:   "acme",
		APIKey:    "ACME_0123456789ABCDEF",
		APISecret: "_secret0123456789",
		BaseURL:   srv.URL,
		Retry:     fastRetry(),
		Logger:    zap.NewNop(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

// memoryStore is a TokenStore backed by a map.
type memoryStore struct {
	mu     sync.Mutex
	tokens map[string]Token
	saves  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tokens: map[string]Token{}}
}

func (m *memoryStore) Load(_ context.Context, key string) (Token, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[key]
	return tok, ok, nil
}

func (m *memoryStore) Save(_ context.Context, key string, tok Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = tok
	m.saves++
	return nil
}
