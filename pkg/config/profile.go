package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
)

// Environment variables read by Load.
const (
	EnvAccount    = "LW_ACCOUNT"
	EnvSubaccount = "LW_SUBACCOUNT"
	EnvAPIKey     = "LW_API_KEY"
	EnvAPISecret  = "LW_API_SECRET"
	EnvDomain     = "LW_BASE_DOMAIN"
	EnvOrgAccess  = "LW_ORG_ACCESS"
	EnvProfile    = "LW_PROFILE"
	EnvConfigFile = "LW_CONFIG_FILE"
)

const (
	DefaultProfile    = "default"
	defaultConfigName = ".lacework.yaml"
)

// ErrProfileIncomplete is returned when no source provides account, key or secret.
var ErrProfileIncomplete = errors.New("lacework profile incomplete")

// Profile is one set of Lacework credentials.
type Profile struct {
	Name       string `yaml:"-"`
	Account    string `yaml:"account"`
	Subaccount string `yaml:"subaccount,omitempty"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Domain     string `yaml:"domain,omitempty"`
	OrgAccess  bool   `yaml:"org_access,omitempty"`
}

// LoadOptions selects the sources Load reads. Non-empty fields of Explicit
// win over every other source.
type LoadOptions struct {
	// Profile defaults to $LW_PROFILE, then "default".
	Profile string
	// ConfigFile defaults to $LW_CONFIG_FILE, then ~/.lacework.yaml.
	ConfigFile string
	// EnvFile is loaded with godotenv before reading the environment; ".env" when empty.
	EnvFile string

	Explicit Profile
	// OrgAccess overrides the org_access flag when set.
	OrgAccess *bool
}

// Load resolves a profile field by field: explicit value, then LW_*
// environment variables, then the named profile of the YAML config file.
// A missing config file or .env file is not an error.
func Load(opts LoadOptions) (*Profile, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	name := first(opts.Profile, os.Getenv(EnvProfile), DefaultProfile)
	path := first(opts.ConfigFile, os.Getenv(EnvConfigFile), defaultConfigPath())

	p, err := readProfile(path, name)
	if err != nil {
		return nil, err
	}
	p.Name = name

	p.Account = first(opts.Explicit.Account, os.Getenv(EnvAccount), p.Account)
	p.Subaccount = first(opts.Explicit.Subaccount, os.Getenv(EnvSubaccount), p.Subaccount)
	p.APIKey = first(opts.Explicit.APIKey, os.Getenv(EnvAPIKey), p.APIKey)
	p.APISecret = first(opts.Explicit.APISecret, os.Getenv(EnvAPISecret), p.APISecret)
	p.Domain = first(opts.Explicit.Domain, os.Getenv(EnvDomain), p.Domain)
	p.OrgAccess = GetEnvBool(EnvOrgAccess, p.OrgAccess)
	if opts.OrgAccess != nil {
		p.OrgAccess = *opts.OrgAccess
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports the first required field that is empty.
func (p Profile) Validate() error {
	switch {
	case p.Account == "":
		return fmt.Errorf("%w: account is required (%s)", ErrProfileIncomplete, EnvAccount)
	case p.APIKey == "":
		return fmt.Errorf("%w: api key is required (%s)", ErrProfileIncomplete, EnvAPIKey)
	case p.APISecret == "":
		return fmt.Errorf("%w: api secret is required (%s)", ErrProfileIncomplete, EnvAPISecret)
	}
	return nil
}

// APIConfig converts the profile into a session configuration. Callers add
// the logger, token store and rate limiter.
func (p Profile) APIConfig() api.Config {
	return api.Config{
		Account:        p.Account,
		Subaccount:     p.Subaccount,
		APIKey:         p.APIKey,
		APISecret:      p.APISecret,
		BaseDomain:     p.Domain,
		OrgLevelAccess: p.OrgAccess,
	}
}

// readProfile returns the named profile of the YAML file at path. The file
// maps profile names to Profile fields.
func readProfile(path, name string) (Profile, error) {
	if path == "" {
		return Profile{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var profiles map[string]Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return Profile{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return profiles[name], nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, defaultConfigName)
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
