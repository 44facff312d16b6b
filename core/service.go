package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	tracer            trace.Tracer
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	aggregator        Aggregator
	paymentRail       PaymentRail
	identityGateway   IdentityGateway
	identifierCodec   IdentifierCodec
	linkageStore      LinkageStore
	attemptStore      LinkAttemptStore
	profileStore      UserProfileStore
	linkLocker        LinkLocker
	replayLedger      ReplayLedger
	recoveryEnqueuer  RecoveryEnqueuer
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	Tracer            trace.Tracer
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Aggregator        Aggregator
	PaymentRail       PaymentRail
	IdentityGateway   IdentityGateway
	IdentifierCodec   IdentifierCodec
	LinkageStore      LinkageStore
	LinkAttemptStore  LinkAttemptStore
	UserProfileStore  UserProfileStore
	LinkLocker        LinkLocker
	ReplayLedger      ReplayLedger
	RecoveryEnqueuer  RecoveryEnqueuer
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("banklink", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("banklink"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.tracer == nil {
		builder.tracer = otel.Tracer(instrumentationName)
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil {
		var stores StoreProvider
		switch factory := builder.repositoryFactory.(type) {
		case RepositoryStoreFactory:
			built, buildErr := factory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			stores = built
		case StoreProvider:
			stores = factory
		}
		if stores != nil {
			if builder.linkageStore == nil {
				builder.linkageStore = stores.LinkageStore()
			}
			if builder.attemptStore == nil {
				builder.attemptStore = stores.LinkAttemptStore()
			}
			if builder.profileStore == nil {
				builder.profileStore = stores.UserProfileStore()
			}
		}
	}
	if builder.linkLocker == nil {
		builder.linkLocker = NewMemoryLinkLocker()
	}
	if builder.replayLedger == nil {
		builder.replayLedger = NewMemoryReplayLedger(finalConfig.PublicTokenTTL)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		tracer:            builder.tracer,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		aggregator:        builder.aggregator,
		paymentRail:       builder.paymentRail,
		identityGateway:   builder.identityGateway,
		identifierCodec:   builder.identifierCodec,
		linkageStore:      builder.linkageStore,
		attemptStore:      builder.attemptStore,
		profileStore:      builder.profileStore,
		linkLocker:        builder.linkLocker,
		replayLedger:      builder.replayLedger,
		recoveryEnqueuer:  builder.recoveryEnqueuer,
		now:               builder.now,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		Tracer:            s.tracer,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Aggregator:        s.aggregator,
		PaymentRail:       s.paymentRail,
		IdentityGateway:   s.identityGateway,
		IdentifierCodec:   s.identifierCodec,
		LinkageStore:      s.linkageStore,
		LinkAttemptStore:  s.attemptStore,
		UserProfileStore:  s.profileStore,
		LinkLocker:        s.linkLocker,
		ReplayLedger:      s.replayLedger,
		RecoveryEnqueuer:  s.recoveryEnqueuer,
	}
}

// mapError leaves *LinkError values untouched so callers can inspect the
// stage and outcome.
func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsLinkError(err); ok {
		return err
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}
