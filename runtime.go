package banklink

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-banklink/adapters/gojob"
	"github.com/goliatone/go-banklink/adapters/gologger"
	"github.com/goliatone/go-banklink/core"
	"github.com/goliatone/go-banklink/dwolla"
	"github.com/goliatone/go-banklink/identity"
	"github.com/goliatone/go-banklink/plaid"
	"github.com/goliatone/go-banklink/security"
	sqlstore "github.com/goliatone/go-banklink/store/sql"
	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

// Runtime is a fully wired banklink service with its persistence, facade and
// recovery components.
type Runtime struct {
	Service      *core.Service
	Facade       *Facade
	Persistence  *persistence.Client
	Repositories *sqlstore.RepositoryFactory
	Recovery     *gojob.RecoveryProcessor
	Sweeper      *gojob.RecoverySweeper

	sweepLimit int
}

type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
	metrics        core.MetricsRecorder
	httpClient     *http.Client
	enqueuer       queue.Enqueuer
	persistence    *persistence.Client
	identityVerify identity.SessionVerifier
	serviceOptions []core.Option
}

func WithRuntimeLogger(logger glog.Logger) RuntimeOption {
	return func(o *runtimeOptions) { o.logger = logger }
}

func WithRuntimeLoggerProvider(provider glog.LoggerProvider) RuntimeOption {
	return func(o *runtimeOptions) { o.loggerProvider = provider }
}

func WithRuntimeMetrics(recorder core.MetricsRecorder) RuntimeOption {
	return func(o *runtimeOptions) { o.metrics = recorder }
}

// WithHTTPClient is shared by the aggregator, payment rail and identity clients.
func WithHTTPClient(client *http.Client) RuntimeOption {
	return func(o *runtimeOptions) { o.httpClient = client }
}

// WithRecoveryQueue enables background recovery of partially linked attempts.
func WithRecoveryQueue(enqueuer queue.Enqueuer) RuntimeOption {
	return func(o *runtimeOptions) { o.enqueuer = enqueuer }
}

// WithPersistence reuses an already opened client instead of opening
// database.dsn.
func WithPersistence(client *persistence.Client) RuntimeOption {
	return func(o *runtimeOptions) { o.persistence = client }
}

func WithSessionVerifier(verifier identity.SessionVerifier) RuntimeOption {
	return func(o *runtimeOptions) { o.identityVerify = verifier }
}

func WithServiceOptions(opts ...core.Option) RuntimeOption {
	return func(o *runtimeOptions) { o.serviceOptions = append(o.serviceOptions, opts...) }
}

// NewRuntime wires every component named by cfg. The returned runtime owns
// the persistence client unless one was passed with WithPersistence.
func NewRuntime(ctx context.Context, cfg AppConfig, opts ...RuntimeOption) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := runtimeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	secrets, err := security.NewAppKeySecretProviderFromString(cfg.Security.AppKey,
		security.WithKeyID(cfg.Security.KeyID),
		security.WithVersion(cfg.Security.KeyVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("banklink: secret provider: %w", err)
	}
	codec, err := security.NewHMACIdentifierCodecFromString(cfg.Security.ShareableKey())
	if err != nil {
		return nil, fmt.Errorf("banklink: identifier codec: %w", err)
	}

	aggregatorOpts := []plaid.Option{}
	railOpts := []dwolla.Option{}
	identityCfg := cfg.Identity
	if options.httpClient != nil {
		aggregatorOpts = append(aggregatorOpts, plaid.WithHTTPClient(options.httpClient))
		railOpts = append(railOpts, dwolla.WithHTTPClient(options.httpClient))
		identityCfg.HTTPClient = options.httpClient
	}
	if options.identityVerify != nil {
		identityCfg.Verifier = options.identityVerify
	}
	aggregator, err := plaid.New(cfg.Plaid, aggregatorOpts...)
	if err != nil {
		return nil, err
	}
	rail, err := dwolla.New(cfg.Dwolla, railOpts...)
	if err != nil {
		return nil, err
	}
	gateway := identity.NewSessionResolver(identityCfg)

	factoryOpts := []sqlstore.FactoryOption{}
	if cfg.Cache.Enabled {
		cacheConfig := repositorycache.DefaultConfig()
		cacheConfig.TTL = cfg.Cache.TTL
		cacheService, cacheErr := repositorycache.NewCacheService(cacheConfig)
		if cacheErr != nil {
			return nil, fmt.Errorf("banklink: linkage cache: %w", cacheErr)
		}
		factoryOpts = append(factoryOpts, sqlstore.WithLinkageCache(cacheService))
	}

	client := options.persistence
	ownsClient := false
	if client == nil {
		client, err = sqlstore.OpenPersistenceClient(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		ownsClient = true
	}
	closeOnError := func() {
		if ownsClient {
			_ = client.Close()
		}
	}
	repositories := sqlstore.NewRepositoryFactory(secrets, factoryOpts...)

	serviceOpts := []core.Option{
		core.WithPersistenceClient(client),
		core.WithRepositoryFactory(repositories),
		core.WithAggregator(aggregator),
		core.WithPaymentRail(rail),
		core.WithIdentityGateway(gateway),
		core.WithIdentifierCodec(codec),
	}
	if options.logger != nil {
		serviceOpts = append(serviceOpts, core.WithLogger(options.logger))
	}
	if options.loggerProvider != nil {
		serviceOpts = append(serviceOpts, core.WithLoggerProvider(options.loggerProvider))
	}
	if options.metrics != nil {
		serviceOpts = append(serviceOpts, core.WithMetricsRecorder(options.metrics))
	}
	var enqueuer core.RecoveryEnqueuer
	if options.enqueuer != nil {
		enqueuer = gojob.NewRecoveryEnqueuer(options.enqueuer)
		serviceOpts = append(serviceOpts, core.WithRecoveryEnqueuer(enqueuer))
	}
	serviceOpts = append(serviceOpts, options.serviceOptions...)

	svc, err := core.NewService(cfg.Banklink, serviceOpts...)
	if err != nil {
		closeOnError()
		return nil, err
	}
	facade, err := NewFacade(svc)
	if err != nil {
		closeOnError()
		return nil, err
	}

	recoveryLogger := gologger.Component(options.loggerProvider, options.logger, "recovery")
	policy := gojob.RetryPolicy{
		MaxAttempts:     cfg.Recovery.MaxAttempts,
		BaseDelay:       cfg.Recovery.BaseDelay,
		MaxDelay:        cfg.Recovery.MaxDelay,
		DeadLetterOnMax: true,
	}
	runtime := &Runtime{
		Service:      svc,
		Facade:       facade,
		Repositories: repositories,
		Recovery:     gojob.NewRecoveryProcessor(svc, policy, recoveryLogger),
		sweepLimit:   cfg.Recovery.SweepLimit,
	}
	if ownsClient {
		runtime.Persistence = client
	}
	if enqueuer != nil {
		runtime.Sweeper = gojob.NewRecoverySweeper(repositories.Attempts(), enqueuer, recoveryLogger)
	}
	return runtime, nil
}

// SweepRecoveries re-enqueues stored partially linked attempts. It is a
// no-op when no recovery queue is configured.
func (r *Runtime) SweepRecoveries(ctx context.Context) (int, error) {
	if r == nil || r.Sweeper == nil {
		return 0, nil
	}
	return r.Sweeper.Sweep(ctx, r.sweepLimit)
}

// RegisterCustomer stores the payment-rail customer created for a user at
// sign-up. The customer id is taken from the resource URL.
func (r *Runtime) RegisterCustomer(ctx context.Context, userID, email, customerURL string) (core.UserProfile, error) {
	if r == nil || r.Service == nil {
		return core.UserProfile{}, fmt.Errorf("banklink: runtime is not configured")
	}
	return r.Service.SaveUserProfile(ctx, ProfileInputFromCustomerURL(userID, email, customerURL))
}

func ProfileInputFromCustomerURL(userID, email, customerURL string) core.SaveUserProfileInput {
	customerURL = strings.TrimSpace(customerURL)
	return core.SaveUserProfileInput{
		UserID:             strings.TrimSpace(userID),
		Email:              strings.TrimSpace(email),
		PaymentCustomerID:  dwolla.CustomerIDFromURL(customerURL),
		PaymentCustomerURL: customerURL,
	}
}

func (r *Runtime) Close() error {
	if r == nil || r.Persistence == nil {
		return nil
	}
	return r.Persistence.Close()
}
