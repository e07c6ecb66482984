package secrets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/config"
)

const vendor = "lacework"

// Resolver resolves Lacework credential profiles from a Provider, caching
// results locally to reduce API calls.
//
// Secret naming convention: {env}/lacework/{profile}, holding
// {"account", "subaccount", "api_key", "api_secret", "domain", "org_access"}.
type Resolver struct {
	logger   *zap.Logger
	env      string
	provider Provider
	cache    *Cache[config.Profile]
}

// NewResolver constructs a profile resolver for env.
func NewResolver(logger *zap.Logger, env string, provider Provider, cache *Cache[config.Profile]) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
	}
}

// SecretName returns the secret holding profile.
func (r *Resolver) SecretName(profile string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, vendor, profile))
}

// Resolve returns the named profile, from cache when possible.
func (r *Resolver) Resolve(ctx context.Context, profile string) (config.Profile, error) {
	key := strings.ToLower(profile)
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	name := r.SecretName(profile)
	secret, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		return config.Profile{}, fmt.Errorf("resolve profile %q: %w", profile, err)
	}

	p, err := parseProfile(secret)
	if err != nil {
		return config.Profile{}, fmt.Errorf("parse secret %q: %w", name, err)
	}
	p.Name = profile

	r.cache.Put(key, p)
	r.logger.Info("aws.profile_resolved",
		zap.String("profile", profile),
		zap.String("account", p.Account))
	return p, nil
}

func parseProfile(m map[string]string) (config.Profile, error) {
	p := config.Profile{
		Account:    m["account"],
		Subaccount: m["subaccount"],
		APIKey:     m["api_key"],
		APISecret:  m["api_secret"],
		Domain:     m["domain"],
	}
	if v := m["org_access"]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return config.Profile{}, fmt.Errorf("org_access: %w", err)
		}
		p.OrgAccess = b
	}
	return p, p.Validate()
}

// DiscoverProfiles lists the profile names stored under {env}/lacework/.
func (r *Resolver) DiscoverProfiles(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(fmt.Sprintf("%s/%s/", r.env, vendor))

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover profiles: %w", err)
	}

	var profiles []string
	for _, name := range names {
		rest, ok := strings.CutPrefix(strings.ToLower(name), prefix)
		if ok && rest != "" && !strings.Contains(rest, "/") {
			profiles = append(profiles, rest)
		}
	}

	r.logger.Info("aws.profiles_discovered",
		zap.Int("count", len(profiles)),
		zap.Strings("profiles", profiles))
	return profiles, nil
}
