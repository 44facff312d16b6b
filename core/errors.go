package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput              = "BANKLINK_BAD_INPUT"
	ErrorConfiguration         = "BANKLINK_CONFIGURATION"
	ErrorRemoteFailure         = "BANKLINK_REMOTE_FAILURE"
	ErrorEmptyResult           = "BANKLINK_EMPTY_RESULT"
	ErrorNoLinkableAccounts    = "BANKLINK_NO_LINKABLE_ACCOUNTS"
	ErrorFundingSourceFailed   = "BANKLINK_FUNDING_SOURCE_FAILED"
	ErrorPublicTokenConsumed   = "BANKLINK_PUBLIC_TOKEN_CONSUMED"
	ErrorLinkInProgress        = "BANKLINK_LINK_IN_PROGRESS"
	ErrorPersistenceFailed     = "BANKLINK_PERSISTENCE_FAILED"
	ErrorNotFound              = "BANKLINK_NOT_FOUND"
	ErrorUnauthorized          = "BANKLINK_UNAUTHORIZED"
	ErrorRateLimited           = "BANKLINK_RATE_LIMITED"
	ErrorTimeout               = "BANKLINK_TIMEOUT"
	ErrorLinkFailed            = "BANKLINK_LINK_FAILED"
	ErrorPartiallyLinked       = "BANKLINK_PARTIALLY_LINKED"
	ErrorAttemptNotRecoverable = "BANKLINK_ATTEMPT_NOT_RECOVERABLE"
	ErrorInternal              = "BANKLINK_INTERNAL_ERROR"
)

const (
	MessageUnableToLink    = "unable to link bank account"
	MessagePartiallyLinked = "bank account linked but not fully registered"
)

// LinkOutcome separates failures the user can simply retry from runs that
// left remote side effects without a local record.
type LinkOutcome string

const (
	LinkOutcomeFailed          LinkOutcome = "failed"
	LinkOutcomePartiallyLinked LinkOutcome = "partially_linked"
)

// LinkError is returned by every pipeline entry point. Stage is the last
// stage that completed before the failure.
type LinkError struct {
	Stage     LinkStage
	Failed    string
	Outcome   LinkOutcome
	AttemptID string
	Cause     error
}

func (e *LinkError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("core: link %s at %s", e.Outcome, e.Failed)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LinkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *LinkError) PartiallyLinked() bool {
	return e != nil && e.Outcome == LinkOutcomePartiallyLinked
}

func (e *LinkError) UserMessage() string {
	if e.PartiallyLinked() {
		return MessagePartiallyLinked
	}
	return MessageUnableToLink
}

// CauseTextCode is the text code of the underlying stage failure.
func (e *LinkError) CauseTextCode() string {
	if e == nil || e.Cause == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(e.Cause, &rich) {
		return rich.TextCode
	}
	return ""
}

func (e *LinkError) ToServiceError() *goerrors.Error {
	textCode := ErrorLinkFailed
	category := goerrors.CategoryExternal
	if e.PartiallyLinked() {
		textCode = ErrorPartiallyLinked
		category = goerrors.CategoryInternal
	}
	var rich *goerrors.Error
	if e != nil && e.Cause != nil && goerrors.As(e.Cause, &rich) {
		category = rich.Category
	}
	out := goerrors.New(e.UserMessage(), category).
		WithCode(serviceHTTPStatus(category)).
		WithTextCode(textCode)
	metadata := map[string]any{
		"stage":        string(e.Stage),
		"failed_stage": e.Failed,
		"outcome":      string(e.Outcome),
	}
	if e.AttemptID != "" {
		metadata["attempt_id"] = e.AttemptID
	}
	if code := e.CauseTextCode(); code != "" {
		metadata["cause_code"] = code
	}
	if e.Cause != nil {
		metadata["cause"] = e.Cause.Error()
	}
	return out.WithMetadata(metadata)
}

// AsLinkError unwraps err into a *LinkError.
func AsLinkError(err error) (*LinkError, bool) {
	var linkErr *LinkError
	if errors.As(err, &linkErr) {
		return linkErr, true
	}
	return nil, false
}

// HasTextCode reports whether err carries the given go-errors text code.
func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == textCode {
		return true
	}
	if linkErr, ok := AsLinkError(err); ok {
		return HasTextCode(linkErr.Cause, textCode)
	}
	return false
}

// serviceErrorConverter is implemented by adapter errors that know their own
// envelope.
type serviceErrorConverter interface {
	ToServiceError() *goerrors.Error
}

func convertedServiceError(err error) (*goerrors.Error, bool) {
	var converter serviceErrorConverter
	if !errors.As(err, &converter) {
		return nil, false
	}
	mapped := converter.ToServiceError()
	if mapped == nil {
		return nil, false
	}
	return ensureServiceErrorEnvelope(mapped), true
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func configurationError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryBadInput, ErrorConfiguration)
}

func badInputError(message string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryBadInput, ErrorBadInput)
}

func conflictError(message string, textCode string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryConflict, textCode)
}

func emptyResultError(message string, textCode string) *goerrors.Error {
	return newServiceError(message, goerrors.CategoryExternal, textCode)
}

// remoteError wraps a failed external call unless it already carries an
// envelope, in which case the existing text code is preserved.
func remoteError(err error, message string) error {
	if err == nil {
		return nil
	}
	if converted, ok := convertedServiceError(err); ok {
		return converted
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return ensureServiceErrorEnvelope(rich)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ensureServiceErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryExternal, message).
				WithTextCode(ErrorTimeout),
		)
	}
	return ensureServiceErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryExternal, message).
			WithTextCode(ErrorRemoteFailure),
	)
}

func persistenceError(err error, message string) error {
	if err == nil {
		return nil
	}
	return ensureServiceErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryInternal, message).
			WithTextCode(ErrorPersistenceFailed),
	)
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	if linkErr, ok := AsLinkError(err); ok {
		return linkErr.ToServiceError()
	}
	if converted, ok := convertedServiceError(err); ok {
		return converted
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case errors.Is(err, ErrLinkageNotFound), errors.Is(err, ErrLinkAttemptNotFound), errors.Is(err, ErrUserProfileNotFound):
		return newServiceError(err.Error(), goerrors.CategoryNotFound, ErrorNotFound)
	case strings.Contains(msg, "lock already held"):
		return newServiceError(err.Error(), goerrors.CategoryConflict, ErrorLinkInProgress)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newServiceError(err.Error(), goerrors.CategoryRateLimit, ErrorRateLimited)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryConflict:
		return ErrorLinkInProgress
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorRemoteFailure
	default:
		return ErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
