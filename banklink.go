package banklink

import "github.com/goliatone/go-banklink/core"

type Config = core.Config

type LinkConfig = core.LinkConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type User = core.User
type LinkSession = core.LinkSession
type LinkResult = core.LinkResult
type LinkError = core.LinkError
type LinkAttempt = core.LinkAttempt
type BankAccountLinkage = core.BankAccountLinkage
type CreateLinkageInput = core.CreateLinkageInput
type UserProfile = core.UserProfile
type SaveUserProfileInput = core.SaveUserProfileInput

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithAggregator        = core.WithAggregator
	WithPaymentRail       = core.WithPaymentRail
	WithIdentityGateway   = core.WithIdentityGateway
	WithIdentifierCodec   = core.WithIdentifierCodec
	WithLinkageStore      = core.WithLinkageStore
	WithLinkAttemptStore  = core.WithLinkAttemptStore
	WithUserProfileStore  = core.WithUserProfileStore
	WithLinkLocker        = core.WithLinkLocker
	WithReplayLedger      = core.WithReplayLedger
	WithRecoveryEnqueuer  = core.WithRecoveryEnqueuer
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
