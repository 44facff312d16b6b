package core

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubAggregator struct {
	mu sync.Mutex

	linkToken      string
	linkTokenErr   error
	exchangeResult PublicTokenExchangeResponse
	exchangeErr    error
	accounts       []Account
	accountsErr    error
	processorToken string
	processorErr   error

	linkTokenRequests []LinkTokenRequest
	exchangeCalls     []string
	accountCalls      []string
	processorRequests []ProcessorTokenRequest
}

func newStubAggregator() *stubAggregator {
	return &stubAggregator{
		linkToken:      "link-sandbox-1",
		exchangeResult: PublicTokenExchangeResponse{AccessToken: "access-xyz", ItemID: "item-1"},
		accounts:       []Account{{ID: "acct-1", Name: "Checking"}},
		processorToken: "proc-tok-1",
	}
}

func (a *stubAggregator) CreateLinkToken(_ context.Context, req LinkTokenRequest) (LinkTokenResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.linkTokenRequests = append(a.linkTokenRequests, req)
	if a.linkTokenErr != nil {
		return LinkTokenResponse{}, a.linkTokenErr
	}
	return LinkTokenResponse{LinkToken: a.linkToken, RequestID: "req_1"}, nil
}

func (a *stubAggregator) ExchangePublicToken(_ context.Context, publicToken string) (PublicTokenExchangeResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchangeCalls = append(a.exchangeCalls, publicToken)
	if a.exchangeErr != nil {
		return PublicTokenExchangeResponse{}, a.exchangeErr
	}
	return a.exchangeResult, nil
}

func (a *stubAggregator) ListAccounts(_ context.Context, accessToken string) ([]Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accountCalls = append(a.accountCalls, accessToken)
	if a.accountsErr != nil {
		return nil, a.accountsErr
	}
	return append([]Account(nil), a.accounts...), nil
}

func (a *stubAggregator) CreateProcessorToken(_ context.Context, req ProcessorTokenRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processorRequests = append(a.processorRequests, req)
	if a.processorErr != nil {
		return "", a.processorErr
	}
	return a.processorToken, nil
}

func (a *stubAggregator) processorCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.processorRequests)
}

type stubPaymentRail struct {
	mu       sync.Mutex
	url      string
	err      error
	block    chan struct{}
	requests []FundingSourceRequest
}

func (r *stubPaymentRail) CreateFundingSource(ctx context.Context, req FundingSourceRequest) (FundingSource, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	block := r.block
	r.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return FundingSource{}, ctx.Err()
		}
	}
	if r.err != nil {
		return FundingSource{}, r.err
	}
	return FundingSource{URL: r.url, Created: r.url != ""}, nil
}

func (r *stubPaymentRail) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

type spyLinkageStore struct {
	mu             sync.Mutex
	next           int
	createErr      error
	commitThenFail int
	created        []CreateLinkageInput
	byID           map[string]BankAccountLinkage
}

func newSpyLinkageStore() *spyLinkageStore {
	return &spyLinkageStore{byID: map[string]BankAccountLinkage{}}
}

func (s *spyLinkageStore) Create(_ context.Context, in CreateLinkageInput) (BankAccountLinkage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, in)
	if s.createErr != nil {
		return BankAccountLinkage{}, s.createErr
	}
	s.next++
	linkage := BankAccountLinkage{
		ID:               fmt.Sprintf("lnk_%d", s.next),
		UserID:           in.UserID,
		BankID:           in.BankID,
		AccountID:        in.AccountID,
		AccessToken:      in.AccessToken,
		FundingSourceURL: in.FundingSourceURL,
		ShareableID:      in.ShareableID,
		AttemptID:        in.AttemptID,
		CreatedAt:        time.Now().UTC(),
	}
	s.byID[linkage.ID] = linkage
	if s.commitThenFail > 0 {
		s.commitThenFail--
		return BankAccountLinkage{}, errors.New("linkage committed but cache invalidation failed")
	}
	return linkage, nil
}

func (s *spyLinkageStore) GetByAttemptID(_ context.Context, attemptID string) (BankAccountLinkage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, linkage := range s.byID {
		if attemptID != "" && linkage.AttemptID == attemptID {
			return linkage, nil
		}
	}
	return BankAccountLinkage{}, ErrLinkageNotFound
}

func (s *spyLinkageStore) Get(_ context.Context, id string) (BankAccountLinkage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	linkage, ok := s.byID[id]
	if !ok {
		return BankAccountLinkage{}, ErrLinkageNotFound
	}
	return linkage, nil
}

func (s *spyLinkageStore) GetByShareableID(_ context.Context, shareableID string) (BankAccountLinkage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, linkage := range s.byID {
		if linkage.ShareableID == shareableID {
			return linkage, nil
		}
	}
	return BankAccountLinkage{}, ErrLinkageNotFound
}

func (s *spyLinkageStore) ListByUser(_ context.Context, userID string) ([]BankAccountLinkage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []BankAccountLinkage{}
	for _, linkage := range s.byID {
		if linkage.UserID == userID {
			out = append(out, linkage)
		}
	}
	return out, nil
}

func (s *spyLinkageStore) createCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func (s *spyLinkageStore) storedFor(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, linkage := range s.byID {
		if linkage.UserID == userID {
			count++
		}
	}
	return count
}

func (s *spyLinkageStore) failCreates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

type memoryAttemptStore struct {
	mu             sync.Mutex
	next           int
	byID           map[string]LinkAttempt
	failCompletion bool
}

func newMemoryAttemptStore() *memoryAttemptStore {
	return &memoryAttemptStore{byID: map[string]LinkAttempt{}}
}

func (s *memoryAttemptStore) Create(_ context.Context, attempt LinkAttempt) (LinkAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	attempt.ID = fmt.Sprintf("att_%d", s.next)
	s.byID[attempt.ID] = attempt
	return attempt, nil
}

func (s *memoryAttemptStore) Update(_ context.Context, attempt LinkAttempt) (LinkAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[attempt.ID]; !ok {
		return LinkAttempt{}, ErrLinkAttemptNotFound
	}
	if s.failCompletion && attempt.Status == LinkAttemptStatusCompleted {
		return LinkAttempt{}, errors.New("attempt update failed")
	}
	s.byID[attempt.ID] = attempt
	return attempt, nil
}

func (s *memoryAttemptStore) setFailCompletion(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCompletion = fail
}

func (s *memoryAttemptStore) Get(_ context.Context, id string) (LinkAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.byID[id]
	if !ok {
		return LinkAttempt{}, ErrLinkAttemptNotFound
	}
	return attempt, nil
}

type memoryProfileStore struct {
	mu       sync.Mutex
	byUserID map[string]UserProfile
}

func newMemoryProfileStore() *memoryProfileStore {
	return &memoryProfileStore{byUserID: map[string]UserProfile{}}
}

func (s *memoryProfileStore) Save(_ context.Context, in SaveUserProfileInput) (UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	profile := UserProfile{
		UserID:             in.UserID,
		Email:              in.Email,
		PaymentCustomerID:  in.PaymentCustomerID,
		PaymentCustomerURL: in.PaymentCustomerURL,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.byUserID[in.UserID] = profile
	return profile, nil
}

func (s *memoryProfileStore) Get(_ context.Context, userID string) (UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.byUserID[userID]
	if !ok {
		return UserProfile{}, ErrUserProfileNotFound
	}
	return profile, nil
}

type stubIdentityGateway struct {
	identity Identity
	err      error
	sessions []string
}

func (g *stubIdentityGateway) CurrentIdentity(_ context.Context, session string) (Identity, error) {
	g.sessions = append(g.sessions, session)
	if g.err != nil {
		return Identity{}, g.err
	}
	return g.identity, nil
}

type recordingEnqueuer struct {
	mu       sync.Mutex
	attempts []LinkAttempt
	err      error
}

func (e *recordingEnqueuer) EnqueueLinkRecovery(_ context.Context, attempt LinkAttempt) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts = append(e.attempts, attempt)
	return e.err
}

type hmacTestCodec struct {
	key []byte
}

func (c hmacTestCodec) EncryptID(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("test codec: identifier is required")
	}
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type linkFixture struct {
	aggregator *stubAggregator
	rail       *stubPaymentRail
	linkages   *spyLinkageStore
	attempts   *memoryAttemptStore
	profiles   *memoryProfileStore
	codec      hmacTestCodec
	service    *Service
}

func newLinkFixture(t *testing.T, opts ...Option) *linkFixture {
	t.Helper()
	return newLinkFixtureWithConfig(t, DefaultConfig(), opts...)
}

func newLinkFixtureWithConfig(t *testing.T, cfg Config, opts ...Option) *linkFixture {
	t.Helper()
	fixture := &linkFixture{
		aggregator: newStubAggregator(),
		rail:       &stubPaymentRail{url: "https://rail.example/funding/1"},
		linkages:   newSpyLinkageStore(),
		attempts:   newMemoryAttemptStore(),
		profiles:   newMemoryProfileStore(),
		codec:      hmacTestCodec{key: []byte("test-identifier-key")},
	}
	base := []Option{
		WithLogger(stubLogger{}),
		WithLoggerProvider(stubLoggerProvider{logger: stubLogger{}}),
		WithAggregator(fixture.aggregator),
		WithPaymentRail(fixture.rail),
		WithLinkageStore(fixture.linkages),
		WithLinkAttemptStore(fixture.attempts),
		WithUserProfileStore(fixture.profiles),
		WithIdentifierCodec(fixture.codec),
	}
	svc, err := NewService(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fixture.service = svc
	return fixture
}

func janeDoe() User {
	return User{ID: "u1", Name: "Jane Doe", PaymentCustomerID: "cust_1"}
}
