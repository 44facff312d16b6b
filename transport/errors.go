package transport

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes match the core error taxonomy.
const (
	TextCodeBadInput      = "BANKLINK_BAD_INPUT"
	TextCodeUnauthorized  = "BANKLINK_UNAUTHORIZED"
	TextCodeRateLimited   = "BANKLINK_RATE_LIMITED"
	TextCodeRemoteFailure = "BANKLINK_REMOTE_FAILURE"
	TextCodeTimeout       = "BANKLINK_TIMEOUT"
	TextCodeInternal      = "BANKLINK_INTERNAL_ERROR"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) *goerrors.Error {
	return transportWrapErrorWithTextCode(source, category, message, code, transportTextCode(category), metadata)
}

func transportWrapErrorWithTextCode(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	if source == nil {
		return transportError(message, category, code, metadata).WithTextCode(textCode)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// StatusError describes a non-2xx response from a remote API. Callers add the
// vendor error fields they parsed from the body as metadata.
func StatusError(res Response, message string, metadata map[string]any) *goerrors.Error {
	category := statusCategory(res.StatusCode)
	fields := map[string]any{"status_code": res.StatusCode}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		fields[key] = value
	}
	code := http.StatusBadGateway
	if category == goerrors.CategoryRateLimit {
		code = http.StatusTooManyRequests
	}
	return transportError(message, category, code, fields)
}

func statusCategory(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	default:
		return goerrors.CategoryExternal
	}
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return TextCodeBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return TextCodeUnauthorized
	case goerrors.CategoryRateLimit:
		return TextCodeRateLimited
	case goerrors.CategoryExternal:
		return TextCodeRemoteFailure
	default:
		return TextCodeInternal
	}
}
