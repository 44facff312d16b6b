package core

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// CreateBankAccountLinkage persists one linkage record. Inputs without an
// attempt id always insert a new row.
func (s *Service) CreateBankAccountLinkage(ctx context.Context, in CreateLinkageInput) (linkage BankAccountLinkage, err error) {
	startedAt := s.clock()
	fields := map[string]any{
		"user_id":    in.UserID,
		"item_id":    in.BankID,
		"account_id": in.AccountID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "create_bank_account_linkage", err, fields)
	}()

	linkage, err = s.createBankAccountLinkage(ctx, in)
	if err != nil {
		err = s.mapError(err)
		return BankAccountLinkage{}, err
	}
	fields["linkage_id"] = linkage.ID
	return linkage, nil
}

func (s *Service) createBankAccountLinkage(ctx context.Context, in CreateLinkageInput) (linkage BankAccountLinkage, err error) {
	ctx, span := s.startSpan(ctx, "create_bank_account_linkage")
	defer func() { endSpan(span, err) }()

	if err = in.Validate(); err != nil {
		return BankAccountLinkage{}, badInputError(err.Error())
	}
	if s.linkageStore == nil {
		return BankAccountLinkage{}, configurationError("core: linkage store is not configured")
	}
	linkage, err = s.linkageStore.Create(ctx, in)
	if err != nil {
		return BankAccountLinkage{}, persistenceError(err, "core: linkage create failed")
	}
	return linkage, nil
}

// EncryptID returns the shareable form of a raw account identifier.
func (s *Service) EncryptID(raw string) (string, error) {
	shareable, err := s.encryptID(raw)
	if err != nil {
		return "", s.mapError(err)
	}
	return shareable, nil
}

func (s *Service) encryptID(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", badInputError("core: identifier is required")
	}
	if s.identifierCodec == nil {
		return "", configurationError("core: identifier codec is not configured")
	}
	shareable, err := s.identifierCodec.EncryptID(raw)
	if err != nil {
		return "", ensureServiceErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryInternal, "core: identifier encoding failed").
				WithTextCode(ErrorInternal),
		)
	}
	if shareable == "" || shareable == raw {
		return "", newServiceError("core: identifier codec returned an unusable value", goerrors.CategoryInternal, ErrorInternal)
	}
	return shareable, nil
}

func (s *Service) GetLinkage(ctx context.Context, id string) (BankAccountLinkage, error) {
	if strings.TrimSpace(id) == "" {
		return BankAccountLinkage{}, s.mapError(badInputError("core: linkage id is required"))
	}
	if s.linkageStore == nil {
		return BankAccountLinkage{}, s.mapError(configurationError("core: linkage store is not configured"))
	}
	linkage, err := s.linkageStore.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return BankAccountLinkage{}, s.mapStoreError(err, "core: linkage lookup failed")
	}
	return linkage, nil
}

func (s *Service) GetLinkageByShareableID(ctx context.Context, shareableID string) (BankAccountLinkage, error) {
	if strings.TrimSpace(shareableID) == "" {
		return BankAccountLinkage{}, s.mapError(badInputError("core: shareable id is required"))
	}
	if s.linkageStore == nil {
		return BankAccountLinkage{}, s.mapError(configurationError("core: linkage store is not configured"))
	}
	linkage, err := s.linkageStore.GetByShareableID(ctx, strings.TrimSpace(shareableID))
	if err != nil {
		return BankAccountLinkage{}, s.mapStoreError(err, "core: linkage lookup failed")
	}
	return linkage, nil
}

func (s *Service) ListLinkages(ctx context.Context, userID string) ([]BankAccountLinkage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, s.mapError(badInputError("core: user id is required"))
	}
	if s.linkageStore == nil {
		return nil, s.mapError(configurationError("core: linkage store is not configured"))
	}
	linkages, err := s.linkageStore.ListByUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, s.mapStoreError(err, "core: linkage list failed")
	}
	return linkages, nil
}

func (s *Service) GetLinkAttempt(ctx context.Context, id string) (LinkAttempt, error) {
	if strings.TrimSpace(id) == "" {
		return LinkAttempt{}, s.mapError(badInputError("core: attempt id is required"))
	}
	if s.attemptStore == nil {
		return LinkAttempt{}, s.mapError(configurationError("core: link attempt store is not configured"))
	}
	attempt, err := s.attemptStore.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return LinkAttempt{}, s.mapStoreError(err, "core: link attempt lookup failed")
	}
	attempt.AccessToken = ""
	return attempt, nil
}

// mapStoreError keeps not-found sentinels distinguishable from storage failures.
func (s *Service) mapStoreError(err error, message string) error {
	if errors.Is(err, ErrLinkageNotFound) ||
		errors.Is(err, ErrLinkAttemptNotFound) ||
		errors.Is(err, ErrUserProfileNotFound) {
		return s.mapError(err)
	}
	return s.mapError(persistenceError(err, message))
}
