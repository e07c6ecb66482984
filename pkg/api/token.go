package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/lacework-go-sdk/internal/metrics"
)

// Token is a short-lived bearer credential.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the token may still be sent at now.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

type tokenRequest struct {
	KeyID      string `json:"keyId"`
	ExpiryTime int64  `json:"expiryTime"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// Token returns a currently valid access token, fetching one if needed.
func (s *Session) Token(ctx context.Context) (Token, error) {
	return s.ensureToken(ctx)
}

// ExpireToken drops the cached token so the next call acquires a new one.
// The token store is bypassed for that acquisition and then overwritten.
func (s *Session) ExpireToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = Token{}
	s.forceRefresh = true
}

func (s *Session) tokenKey() string {
	return s.account + ":" + s.apiKey
}

// ensureToken returns the cached token if it has not expired, then tries the
// shared store, and finally exchanges the API key and secret for a new one.
// The whole check-and-refresh holds s.mu so concurrent callers trigger a
// single acquisition.
func (s *Session) ensureToken(ctx context.Context) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token.Valid(now) {
		return s.token, nil
	}

	if s.store != nil && !s.forceRefresh {
		tok, ok, err := s.store.Load(ctx, s.tokenKey())
		switch {
		case err != nil:
			s.logger.Warn("lacework.token_store_load_failed", zap.Error(err))
		case ok && tok.Valid(now):
			s.token = tok
			return tok, nil
		}
	}

	tok, err := s.acquireToken(ctx)
	if err != nil {
		metrics.IncTokenRefresh("failure")
		return Token{}, fmt.Errorf("acquire access token: %w", err)
	}
	metrics.IncTokenRefresh("success")
	s.token = tok
	s.forceRefresh = false

	if s.store != nil {
		if err := s.store.Save(ctx, s.tokenKey(), tok); err != nil {
			s.logger.Warn("lacework.token_store_save_failed", zap.Error(err))
		}
	}
	return tok, nil
}

// acquireToken posts the key id to the token endpoint with the secret in
// X-LW-UAKS. Failures surface as the same *APIError as any other call.
func (s *Session) acquireToken(ctx context.Context) (Token, error) {
	payload, err := json.Marshal(tokenRequest{
		KeyID:      s.apiKey,
		ExpiryTime: int64(s.tokenExpiry / time.Second),
	})
	if err != nil {
		return Token{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.buildURL(tokenPath), bytes.NewReader(payload))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("X-LW-UAKS", s.apiSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent())

	resp, err := s.send(req, payload)
	if err != nil {
		return Token{}, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return Token{}, &MalformedResponseError{URL: resp.URL, Reason: "token response is not JSON: " + err.Error()}
	}
	if tr.Token == "" {
		return Token{}, &MalformedResponseError{URL: resp.URL, Reason: "empty token"}
	}
	expiresAt, err := parseExpiry(tr.ExpiresAt)
	if err != nil {
		return Token{}, &MalformedResponseError{URL: resp.URL, Reason: err.Error()}
	}

	s.logger.Info("lacework.token_refreshed",
		zap.String("account", s.account),
		zap.Time("expires_at", expiresAt))

	return Token{Value: tr.Token, ExpiresAt: expiresAt}, nil
}

// parseExpiry accepts ISO-8601 timestamps with optional fractional seconds,
// either with a zone ("Z" or an offset) or without one, which is read as UTC.
func parseExpiry(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", v, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid expiresAt %q", v)
}
