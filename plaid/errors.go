package plaid

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-banklink/transport"
	goerrors "github.com/goliatone/go-errors"
)

type errorPayload struct {
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

// apiError converts an aggregator error body into a go-errors envelope. The
// vendor error code lands in metadata so callers can branch on it.
func apiError(res transport.Response, path string) *goerrors.Error {
	var payload errorPayload
	_ = json.Unmarshal(res.Body, &payload)

	message := "plaid: request failed"
	if msg := strings.TrimSpace(payload.ErrorMessage); msg != "" {
		message = "plaid: " + msg
	}
	metadata := map[string]any{"endpoint": path}
	if payload.ErrorType != "" {
		metadata["plaid_error_type"] = payload.ErrorType
	}
	if payload.ErrorCode != "" {
		metadata["plaid_error_code"] = payload.ErrorCode
	}
	if payload.RequestID != "" {
		metadata["request_id"] = payload.RequestID
	}
	return transport.StatusError(res, message, metadata)
}

// ErrorCode returns the vendor error code carried by err, if any.
func ErrorCode(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata == nil {
		return ""
	}
	code, _ := rich.Metadata["plaid_error_code"].(string)
	return code
}
