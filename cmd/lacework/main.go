// Command lacework is a small client for the Lacework v2 API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/Checker-Finance/lacework-go-sdk/internal/rate"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/api"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/config"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/lacework"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/logger"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/secrets"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/tokenstore"
	"github.com/Checker-Finance/lacework-go-sdk/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout)
	logger.Sync()
	os.Exit(code)
}

// app carries what every command needs: parsed options, output, and a
// lazily built client.
type app struct {
	ctx      context.Context
	opts     *Options
	settings *config.Settings
	out      io.Writer
	log      *zap.Logger

	client  *lacework.Client
	secrets *secrets.Resolver
	closers []func() error
}

func run(ctx context.Context, args []string, out io.Writer) int {
	a := &app{ctx: ctx, out: out, settings: config.LoadSettings()}
	a.opts = newOptions(a)

	parser := flags.NewParser(a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(cmd flags.Commander, cmdArgs []string) error {
		if cmd == nil {
			return nil
		}
		level := a.settings.LogLevel
		if a.opts.Debug {
			level = "debug"
		}
		logger.Init(a.settings.ServiceName, a.settings.Env, level)
		a.log = logger.L()
		defer a.close()
		return cmd.Execute(cmdArgs)
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			fmt.Fprintln(out, err)
			return 0
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newOptions(a *app) *Options {
	o := &Options{}
	o.Get.app = a
	o.Items.app = a
	o.Search.app = a
	o.Token.app = a
	o.Profiles.app = a
	return o
}

// connect builds the client on first use.
func (a *app) connect() (*lacework.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	profile, err := a.profile()
	if err != nil {
		return nil, err
	}

	cfg := profile.APIConfig()
	cfg.BaseURL = a.opts.BaseURL
	cfg.Logger = a.log
	cfg.Timeout = a.settings.Timeout
	cfg.TokenExpiry = a.settings.TokenExpiry
	retry := api.DefaultRetryPolicy()
	if a.settings.MaxAttempts > 0 {
		retry.MaxAttempts = a.settings.MaxAttempts
	}
	cfg.Retry = &retry

	if a.settings.RequestsPerSecond > 0 {
		cfg.RateLimiter = rate.NewManager(rate.Config{
			RequestsPerSecond: a.settings.RequestsPerSecond,
			Burst:             a.settings.Burst,
		})
	}
	if a.settings.RedisAddr != "" {
		store, err := tokenstore.NewRedis(a.ctx, a.settings.RedisAddr, a.settings.RedisPass, a.settings.RedisDB, a.log)
		if err != nil {
			a.log.Warn("tokenstore.unavailable", zap.Error(err))
		} else {
			a.log.Debug("tokenstore.connected", zap.String("addr", utils.MaskDSN(a.settings.RedisAddr)))
			cfg.TokenStore = store
			a.closers = append(a.closers, store.Close)
		}
	}

	client, err := lacework.New(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { client.CloseIdleConnections(); return nil })
	a.client = client
	return client, nil
}

// profile resolves credentials from AWS Secrets Manager when --aws or
// LW_USE_AWS_SECRETS is set, and from flags, env and file otherwise.
func (a *app) profile() (*config.Profile, error) {
	o := a.opts
	explicit := config.Profile{
		Account:    o.Account,
		Subaccount: o.Subaccount,
		APIKey:     o.APIKey,
		APISecret:  o.APISecret,
		Domain:     o.Domain,
	}
	var orgAccess *bool
	if o.OrgAccess {
		orgAccess = &o.OrgAccess
	}

	if !o.AWS && !a.settings.UseAWS {
		return config.Load(config.LoadOptions{
			Profile:    o.Profile,
			ConfigFile: o.ConfigFile,
			Explicit:   explicit,
			OrgAccess:  orgAccess,
		})
	}

	resolver, err := a.resolver()
	if err != nil {
		return nil, err
	}
	name := o.Profile
	if name == "" {
		name = config.GetEnv(config.EnvProfile, config.DefaultProfile)
	}
	p, err := resolver.Resolve(a.ctx, name)
	if err != nil {
		return nil, err
	}
	overlay(&p, explicit)
	if o.OrgAccess {
		p.OrgAccess = true
	}
	return &p, nil
}

// newSecretsProvider builds the Secrets Manager provider for region.
var newSecretsProvider = func(ctx context.Context, region string) (secrets.Provider, error) {
	return secrets.NewAWSProvider(ctx, region)
}

// resolver builds the Secrets Manager resolver on first use and starts the
// cleaner of its profile cache.
func (a *app) resolver() (*secrets.Resolver, error) {
	if a.secrets != nil {
		return a.secrets, nil
	}
	provider, err := newSecretsProvider(a.ctx, a.settings.AWSRegion)
	if err != nil {
		return nil, err
	}
	cache := secrets.NewCache[config.Profile](a.settings.CacheTTL)
	if a.settings.CacheTTL > 0 {
		ctx, cancel := context.WithCancel(a.ctx)
		go cache.StartCleaner(ctx, a.settings.CacheTTL)
		a.closers = append(a.closers, func() error { cancel(); return nil })
	}
	a.secrets = secrets.NewResolver(a.log, a.settings.Env, provider, cache)
	return a.secrets, nil
}

// overlay copies the non-empty fields of explicit over p.
func overlay(p *config.Profile, explicit config.Profile) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Account, explicit.Account)
	set(&p.Subaccount, explicit.Subaccount)
	set(&p.APIKey, explicit.APIKey)
	set(&p.APISecret, explicit.APISecret)
	set(&p.Domain, explicit.Domain)
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}
