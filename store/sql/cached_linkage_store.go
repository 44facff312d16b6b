package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-banklink/core"
	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const linkageCacheKeyPrefix = "go-banklink::linkage::v1"

// CachedLinkageStore serves linkage reads from a go-repository-cache service.
// Linkages are immutable once created, so only the per-user list is
// invalidated on writes. A failed invalidation is logged and does not fail
// the write, since the row is already committed.
type CachedLinkageStore struct {
	base   core.LinkageStore
	cache  repositorycache.CacheService
	logger glog.Logger
}

func NewCachedLinkageStore(base core.LinkageStore, cacheService repositorycache.CacheService) (*CachedLinkageStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base linkage store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: linkage cache service is required")
	}
	return &CachedLinkageStore{base: base, cache: cacheService, logger: glog.Nop()}, nil
}

// WithLogger sets the logger used to report cache invalidation failures.
func (s *CachedLinkageStore) WithLogger(logger glog.Logger) *CachedLinkageStore {
	if s != nil {
		s.logger = glog.Ensure(logger)
	}
	return s
}

// LinkageCacheKey returns go-banklink::linkage::v1::<kind>::<value> with the
// value URL-path escaped.
func LinkageCacheKey(kind string, value string) string {
	return strings.Join([]string{
		linkageCacheKeyPrefix,
		url.PathEscape(strings.TrimSpace(kind)),
		url.PathEscape(strings.TrimSpace(value)),
	}, "::")
}

func (s *CachedLinkageStore) Create(ctx context.Context, in core.CreateLinkageInput) (core.BankAccountLinkage, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: cached linkage store is not configured")
	}
	created, err := s.base.Create(ctx, in)
	if err != nil {
		return core.BankAccountLinkage{}, err
	}
	for _, key := range []string{
		LinkageCacheKey("user", created.UserID),
		LinkageCacheKey("shareable", created.ShareableID),
	} {
		if err := s.cache.Delete(ctx, key); err != nil {
			glog.Ensure(s.logger).Warn("linkage cache invalidation failed", "linkage_id", created.ID, "key", key, "error", err.Error())
		}
	}
	return created, nil
}

func (s *CachedLinkageStore) Get(ctx context.Context, id string) (core.BankAccountLinkage, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: cached linkage store is not configured")
	}
	id = strings.TrimSpace(id)
	return repositorycache.GetOrFetch(ctx, s.cache, LinkageCacheKey("id", id), func(ctx context.Context) (core.BankAccountLinkage, error) {
		return s.base.Get(ctx, id)
	})
}

func (s *CachedLinkageStore) GetByShareableID(ctx context.Context, shareableID string) (core.BankAccountLinkage, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: cached linkage store is not configured")
	}
	shareableID = strings.TrimSpace(shareableID)
	return repositorycache.GetOrFetch(ctx, s.cache, LinkageCacheKey("shareable", shareableID), func(ctx context.Context) (core.BankAccountLinkage, error) {
		return s.base.GetByShareableID(ctx, shareableID)
	})
}

// GetByAttemptID reads through to the base store so a resumed attempt never
// sees a stale miss.
func (s *CachedLinkageStore) GetByAttemptID(ctx context.Context, attemptID string) (core.BankAccountLinkage, error) {
	if s == nil || s.base == nil {
		return core.BankAccountLinkage{}, fmt.Errorf("sqlstore: cached linkage store is not configured")
	}
	return s.base.GetByAttemptID(ctx, attemptID)
}

func (s *CachedLinkageStore) ListByUser(ctx context.Context, userID string) ([]core.BankAccountLinkage, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached linkage store is not configured")
	}
	userID = strings.TrimSpace(userID)
	linkages, err := repositorycache.GetOrFetch(ctx, s.cache, LinkageCacheKey("user", userID), func(ctx context.Context) ([]core.BankAccountLinkage, error) {
		return s.base.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return append([]core.BankAccountLinkage(nil), linkages...), nil
}

var _ core.LinkageStore = (*CachedLinkageStore)(nil)
