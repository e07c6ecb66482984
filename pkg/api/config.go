package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/lacework-go-sdk/internal/httpclient"
)

// Version is the SDK version embedded in the User-Agent header.
const Version = "0.4.0"

const (
	// DefaultBaseDomain is appended to the account name to build the API host.
	DefaultBaseDomain = "lacework.net"
	// DefaultTokenExpiry is the lifetime requested for new access tokens.
	DefaultTokenExpiry = time.Hour
	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 60 * time.Second

	tokenPath = "/api/v2/access/tokens"
)

// RetryPolicy controls transport-level retries. See DefaultRetryPolicy.
type RetryPolicy = httpclient.RetryPolicy

// DefaultRetryPolicy returns 3 attempts, 0.3s exponential backoff, retries on
// 500/502/503/504 and network errors, for every verb the SDK sends.
func DefaultRetryPolicy() RetryPolicy {
	return httpclient.DefaultPolicy()
}

// TokenStore shares access tokens between sessions, typically across
// processes. Load reports ok=false when nothing is stored for key.
type TokenStore interface {
	Load(ctx context.Context, key string) (tok Token, ok bool, err error)
	Save(ctx context.Context, key string, tok Token) error
}

// Pacer delays a request for key until the client-side budget allows it.
// *rate.Manager satisfies it.
type Pacer interface {
	Wait(ctx context.Context, key string) error
}

// Config configures a Session. Account, APIKey and APISecret are required.
type Config struct {
	Account    string
	Subaccount string
	APIKey     string
	APISecret  string

	// BaseDomain defaults to DefaultBaseDomain.
	BaseDomain string
	// BaseURL overrides https://{account}.{domain}, e.g. for a proxy.
	BaseURL string

	// OrgLevelAccess sets the session-wide default of the Org-Access header.
	OrgLevelAccess bool

	TokenExpiry time.Duration
	// Timeout bounds each HTTP attempt; backoff sleeps and later attempts get
	// their own budget. Retry.AttemptTimeout takes precedence when set.
	Timeout time.Duration

	// Retry defaults to DefaultRetryPolicy when nil.
	Retry *RetryPolicy
	// Transport is the base round tripper wrapped by the retrying transport.
	Transport http.RoundTripper

	Logger      *zap.Logger
	TokenStore  TokenStore
	RateLimiter Pacer
}

func (c Config) withDefaults() Config {
	if c.BaseDomain == "" {
		c.BaseDomain = DefaultBaseDomain
	}
	if c.TokenExpiry <= 0 {
		c.TokenExpiry = DefaultTokenExpiry
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retry == nil {
		p := DefaultRetryPolicy()
		c.Retry = &p
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// UserAgent is the client identifier sent on every request.
func UserAgent() string {
	return "lacework-go-sdk/" + Version
}
