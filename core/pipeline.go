package core

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel/attribute"
)

// LinkBankAccount runs exchange, processor token minting, funding source
// registration and persistence for a consented public token. Every failure is
// returned as a *LinkError. A failure after the funding source exists is
// reported as partially linked and can be finished with ResumeLinkage.
func (s *Service) LinkBankAccount(ctx context.Context, publicToken string, user User) (result LinkResult, err error) {
	startedAt := s.clock()
	fields := map[string]any{"user_id": user.ID}
	defer func() {
		s.observeOperation(ctx, startedAt, "link_bank_account", err, fields)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.config.PipelineTimeout)
	defer cancel()
	ctx, span := s.startSpan(ctx, "link_bank_account", attribute.String("banklink.user_id", user.ID))
	defer func() { endSpan(span, err) }()

	run := newLinkRun(s, user)
	result, err = run.execute(ctx, publicToken)
	if run.attempt.ID != "" {
		fields["attempt_id"] = run.attempt.ID
	}
	if result.Linkage.ID != "" {
		fields["linkage_id"] = result.Linkage.ID
	}
	return result, err
}

type linkRun struct {
	service *Service
	user    User
	attempt LinkAttempt
	tracked bool
}

func newLinkRun(s *Service, user User) *linkRun {
	now := s.clock()
	return &linkRun{
		service: s,
		user:    user,
		attempt: LinkAttempt{
			UserID:    strings.TrimSpace(user.ID),
			Stage:     LinkStageWidgetConsented,
			Status:    LinkAttemptStatusInProgress,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (r *linkRun) execute(ctx context.Context, publicToken string) (LinkResult, error) {
	s := r.service
	if strings.TrimSpace(r.user.ID) == "" {
		return LinkResult{}, r.fail(ctx, "validate", badInputError("core: user id is required"))
	}

	unlock, err := s.acquireLinkLock(ctx, r.user.ID)
	if err != nil {
		return LinkResult{}, r.fail(ctx, "acquire_lock", err)
	}
	defer unlock()

	if err := r.begin(ctx); err != nil {
		return LinkResult{}, r.fail(ctx, "record_attempt", err)
	}

	exchange, err := s.exchangeAndDiscover(ctx, publicToken, r.user)
	if err != nil {
		return LinkResult{}, r.fail(ctx, "exchange_and_discover", err)
	}
	r.attempt.ItemID = exchange.ItemID
	r.attempt.AccountID = exchange.Account.ID
	r.attempt.BankName = exchange.Account.DisplayName()
	r.attempt.AccessToken = exchange.AccessToken
	r.advance(ctx, LinkStageExchanged)

	processorToken, err := s.mintProcessorToken(ctx, exchange.AccessToken, exchange.Account.ID)
	if err != nil {
		return LinkResult{}, r.fail(ctx, "mint_processor_token", err)
	}
	r.advance(ctx, LinkStageProcessorTokenMinted)

	source, err := s.registerFundingSource(ctx, r.user.PaymentCustomerID, processorToken, r.attempt.BankName)
	if err != nil {
		return LinkResult{}, r.fail(ctx, "register_funding_source", err)
	}
	r.attempt.FundingSourceURL = source.URL
	r.advance(ctx, LinkStageFundingSourceRegistered)

	linkage, err := r.persist(ctx)
	if err != nil {
		return r.partial(ctx, "create_bank_account_linkage", err, true)
	}
	return r.complete(ctx, linkage), nil
}

// begin records the attempt before any remote side effect happens.
func (r *linkRun) begin(ctx context.Context) error {
	s := r.service
	if s.attemptStore == nil {
		return nil
	}
	created, err := s.attemptStore.Create(ctx, r.attempt)
	if err != nil {
		return persistenceError(err, "core: link attempt create failed")
	}
	r.attempt.ID = created.ID
	if !created.CreatedAt.IsZero() {
		r.attempt.CreatedAt = created.CreatedAt
	}
	r.tracked = true
	return nil
}

// persist writes the linkage for the recorded attempt. It refuses to write
// without a funding source url and returns the existing row when an earlier
// run of the same attempt already wrote one.
func (r *linkRun) persist(ctx context.Context) (BankAccountLinkage, error) {
	s := r.service
	if strings.TrimSpace(r.attempt.FundingSourceURL) == "" {
		return BankAccountLinkage{}, emptyResultError("core: funding source url is missing", ErrorFundingSourceFailed)
	}
	if r.tracked && r.attempt.ID != "" && s.linkageStore != nil {
		existing, err := s.linkageStore.GetByAttemptID(ctx, r.attempt.ID)
		switch {
		case err == nil:
			return existing, nil
		case !errors.Is(err, ErrLinkageNotFound):
			return BankAccountLinkage{}, persistenceError(err, "core: linkage lookup by attempt failed")
		}
	}
	shareableID, err := s.encryptID(r.attempt.AccountID)
	if err != nil {
		return BankAccountLinkage{}, err
	}
	return s.createBankAccountLinkage(ctx, CreateLinkageInput{
		UserID:           r.attempt.UserID,
		BankID:           r.attempt.ItemID,
		AccountID:        r.attempt.AccountID,
		AccessToken:      r.attempt.AccessToken,
		FundingSourceURL: r.attempt.FundingSourceURL,
		ShareableID:      shareableID,
		AttemptID:        r.attempt.ID,
	})
}

func (r *linkRun) advance(ctx context.Context, stage LinkStage) {
	s := r.service
	if err := r.attempt.Advance(stage, s.clock()); err != nil {
		s.logError(ctx, "link stage transition rejected", map[string]any{
			"attempt_id": r.attempt.ID,
			"stage":      string(r.attempt.Stage),
			"error":      err.Error(),
		})
		return
	}
	r.save(ctx)
}

func (r *linkRun) save(ctx context.Context) {
	s := r.service
	if !r.tracked || s.attemptStore == nil {
		return
	}
	if _, err := s.attemptStore.Update(ctx, r.attempt); err != nil {
		s.logWarn(ctx, "link attempt update failed", map[string]any{
			"attempt_id": r.attempt.ID,
			"user_id":    r.attempt.UserID,
			"stage":      string(r.attempt.Stage),
			"error":      err.Error(),
		})
	}
}

func (r *linkRun) fail(ctx context.Context, failed string, cause error) error {
	s := r.service
	if r.tracked {
		r.attempt.Fail(LinkAttemptStatusFailed, cause.Error(), s.clock())
		r.attempt.AccessToken = ""
		r.save(context.WithoutCancel(ctx))
	}
	return &LinkError{
		Stage:     r.attempt.Stage,
		Failed:    failed,
		Outcome:   LinkOutcomeFailed,
		AttemptID: r.attempt.ID,
		Cause:     cause,
	}
}

func (r *linkRun) partial(ctx context.Context, failed string, cause error, enqueue bool) (LinkResult, error) {
	s := r.service
	bookkeeping := context.WithoutCancel(ctx)
	r.attempt.Fail(LinkAttemptStatusPartiallyLinked, cause.Error(), s.clock())
	r.save(bookkeeping)

	if enqueue && r.tracked && s.recoveryEnqueuer != nil {
		queued := r.attempt
		queued.AccessToken = ""
		if err := s.recoveryEnqueuer.EnqueueLinkRecovery(bookkeeping, queued); err != nil {
			s.logWarn(bookkeeping, "link recovery enqueue failed", map[string]any{
				"attempt_id": r.attempt.ID,
				"user_id":    r.attempt.UserID,
				"error":      err.Error(),
			})
		}
	}
	return LinkResult{AttemptID: r.attempt.ID, Stage: r.attempt.Stage}, &LinkError{
		Stage:     r.attempt.Stage,
		Failed:    failed,
		Outcome:   LinkOutcomePartiallyLinked,
		AttemptID: r.attempt.ID,
		Cause:     cause,
	}
}

func (r *linkRun) complete(ctx context.Context, linkage BankAccountLinkage) LinkResult {
	r.attempt.LinkageID = linkage.ID
	r.attempt.AccessToken = ""
	r.advance(context.WithoutCancel(ctx), LinkStagePersisted)
	return LinkResult{
		Linkage:   linkage,
		AttemptID: r.attempt.ID,
		Stage:     r.attempt.Stage,
	}
}

func (s *Service) acquireLinkLock(ctx context.Context, userID string) (func(), error) {
	if s.linkLocker == nil {
		return func() {}, nil
	}
	handle, err := s.linkLocker.Acquire(ctx, linkLockKey(userID), s.config.LinkLockTTL)
	if err != nil {
		return nil, ensureServiceErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryConflict, "core: a link attempt is already in progress for this user").
				WithTextCode(ErrorLinkInProgress),
		)
	}
	return func() {
		if unlockErr := handle.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			s.logWarn(ctx, "link lock release failed", map[string]any{
				"user_id": userID,
				"error":   unlockErr.Error(),
			})
		}
	}, nil
}
