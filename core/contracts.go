package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type LinkTokenRequest struct {
	ClientUserID string
	ClientName   string
	Products     []string
	CountryCodes []string
	Language     string
}

type LinkTokenResponse struct {
	LinkToken  string
	Expiration time.Time
	RequestID  string
}

type PublicTokenExchangeResponse struct {
	AccessToken string
	ItemID      string
	RequestID   string
}

type ProcessorTokenRequest struct {
	AccessToken string
	AccountID   string
	Processor   string
}

type LinkTokenCreator interface {
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (LinkTokenResponse, error)
}

type PublicTokenExchanger interface {
	ExchangePublicToken(ctx context.Context, publicToken string) (PublicTokenExchangeResponse, error)
}

type AccountLister interface {
	ListAccounts(ctx context.Context, accessToken string) ([]Account, error)
}

type ProcessorTokenCreator interface {
	CreateProcessorToken(ctx context.Context, req ProcessorTokenRequest) (string, error)
}

// Aggregator is the bank-data aggregator surface the pipeline consumes.
type Aggregator interface {
	LinkTokenCreator
	PublicTokenExchanger
	AccountLister
	ProcessorTokenCreator
}

type FundingSourceRequest struct {
	CustomerID     string
	ProcessorToken string
	Name           string
}

// PaymentRail registers funding sources. Implementations must return a
// non-empty URL or an error; they may return the existing resource on retry.
type PaymentRail interface {
	CreateFundingSource(ctx context.Context, req FundingSourceRequest) (FundingSource, error)
}

// Identity is what the identity provider reports for an opaque session.
type Identity struct {
	Subject string
	Name    string
	Email   string
}

type IdentityGateway interface {
	CurrentIdentity(ctx context.Context, session string) (Identity, error)
}

type LinkageStore interface {
	Create(ctx context.Context, in CreateLinkageInput) (BankAccountLinkage, error)
	Get(ctx context.Context, id string) (BankAccountLinkage, error)
	GetByShareableID(ctx context.Context, shareableID string) (BankAccountLinkage, error)
	ListByUser(ctx context.Context, userID string) ([]BankAccountLinkage, error)
	// GetByAttemptID returns ErrLinkageNotFound when the attempt has not
	// produced a linkage yet.
	GetByAttemptID(ctx context.Context, attemptID string) (BankAccountLinkage, error)
}

type LinkAttemptStore interface {
	Create(ctx context.Context, attempt LinkAttempt) (LinkAttempt, error)
	Update(ctx context.Context, attempt LinkAttempt) (LinkAttempt, error)
	Get(ctx context.Context, id string) (LinkAttempt, error)
}

type UserProfileStore interface {
	Save(ctx context.Context, in SaveUserProfileInput) (UserProfile, error)
	Get(ctx context.Context, userID string) (UserProfile, error)
}

type StoreProvider interface {
	LinkageStore() LinkageStore
	LinkAttemptStore() LinkAttemptStore
	UserProfileStore() UserProfileStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// IdentifierCodec produces the shareable form of a raw account identifier.
type IdentifierCodec interface {
	EncryptID(raw string) (string, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type LockHandle interface {
	Unlock(ctx context.Context) error
}

type LinkLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (LockHandle, error)
}

type ReplayLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RecoveryEnqueuer hands partially linked attempts to background processing.
type RecoveryEnqueuer interface {
	EnqueueLinkRecovery(ctx context.Context, attempt LinkAttempt) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// LinkService is the surface exposed to command, query and job adapters.
type LinkService interface {
	CreateLinkSession(ctx context.Context, user User) (LinkSession, error)
	ExchangeAndDiscover(ctx context.Context, publicToken string, user User) (ExchangeResult, error)
	MintProcessorToken(ctx context.Context, accessToken, accountID string) (string, error)
	RegisterFundingSource(ctx context.Context, customerID, processorToken, bankName string) (FundingSource, error)
	CreateBankAccountLinkage(ctx context.Context, in CreateLinkageInput) (BankAccountLinkage, error)
	EncryptID(raw string) (string, error)
	LinkBankAccount(ctx context.Context, publicToken string, user User) (LinkResult, error)
	ResumeLinkage(ctx context.Context, attemptID string) (LinkResult, error)
	CurrentUser(ctx context.Context, session string) (User, error)
	SaveUserProfile(ctx context.Context, in SaveUserProfileInput) (UserProfile, error)
	GetUserProfile(ctx context.Context, userID string) (UserProfile, error)
	GetLinkage(ctx context.Context, id string) (BankAccountLinkage, error)
	GetLinkageByShareableID(ctx context.Context, shareableID string) (BankAccountLinkage, error)
	ListLinkages(ctx context.Context, userID string) ([]BankAccountLinkage, error)
	GetLinkAttempt(ctx context.Context, id string) (LinkAttempt, error)
}
