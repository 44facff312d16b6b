package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-banklink/core"
	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db      *bun.DB
	secrets core.SecretProvider
	cache   repositorycache.CacheService
	logger  glog.Logger

	linkageStore     core.LinkageStore
	linkAttemptStore *LinkAttemptStore
	userProfileStore *UserProfileStore
}

type FactoryOption func(*RepositoryFactory)

// WithLinkageCache serves linkage reads through the cache service.
func WithLinkageCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cache = cacheService
	}
}

// WithStoreLogger sets the logger handed to stores that report non-fatal
// failures.
func WithStoreLogger(logger glog.Logger) FactoryOption {
	return func(f *RepositoryFactory) {
		f.logger = logger
	}
}

// NewRepositoryFactory builds stores that seal access tokens with secrets.
func NewRepositoryFactory(secrets core.SecretProvider, opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{secrets: secrets}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(
	client *persistence.Client,
	secrets core.SecretProvider,
	opts ...FactoryOption,
) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(secrets, opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, secrets core.SecretProvider, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(secrets, opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.secrets == nil {
		return nil, fmt.Errorf("sqlstore: secret provider is required")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.linkageStore != nil && f.linkAttemptStore != nil && f.userProfileStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) LinkageStore() core.LinkageStore {
	if f == nil {
		return nil
	}
	return f.linkageStore
}

func (f *RepositoryFactory) LinkAttemptStore() core.LinkAttemptStore {
	if f == nil || f.linkAttemptStore == nil {
		return nil
	}
	return f.linkAttemptStore
}

func (f *RepositoryFactory) UserProfileStore() core.UserProfileStore {
	if f == nil || f.userProfileStore == nil {
		return nil
	}
	return f.userProfileStore
}

// Attempts exposes the concrete attempt store for recovery sweeps.
func (f *RepositoryFactory) Attempts() *LinkAttemptStore {
	if f == nil {
		return nil
	}
	return f.linkAttemptStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	linkageStore, err := NewLinkageStore(f.db, f.secrets)
	if err != nil {
		return err
	}
	f.linkageStore = linkageStore
	if f.cache != nil {
		cached, cacheErr := NewCachedLinkageStore(linkageStore, f.cache)
		if cacheErr != nil {
			return cacheErr
		}
		f.linkageStore = cached.WithLogger(f.logger)
	}

	linkAttemptStore, err := NewLinkAttemptStore(f.db, f.secrets)
	if err != nil {
		return err
	}
	f.linkAttemptStore = linkAttemptStore

	userProfileStore, err := NewUserProfileStore(f.db)
	if err != nil {
		return err
	}
	f.userProfileStore = userProfileStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
