package dwolla

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-banklink/transport"
	goerrors "github.com/goliatone/go-errors"
)

type halLink struct {
	Href string `json:"href"`
}

type embeddedError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

type errorPayload struct {
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Links    map[string]halLink `json:"_links"`
	Embedded struct {
		Errors []embeddedError `json:"errors"`
	} `json:"_embedded"`
}

func (p errorPayload) aboutHref() string {
	if p.Links == nil {
		return ""
	}
	return strings.TrimSpace(p.Links["about"].Href)
}

func decodeErrorPayload(res transport.Response) errorPayload {
	var payload errorPayload
	_ = json.Unmarshal(res.Body, &payload)
	return payload
}

func apiError(res transport.Response, payload errorPayload, path string) *goerrors.Error {
	message := "dwolla: request failed"
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		message = "dwolla: " + msg
	}
	metadata := map[string]any{"endpoint": path}
	if payload.Code != "" {
		metadata["dwolla_error_code"] = payload.Code
	}
	if len(payload.Embedded.Errors) > 0 {
		codes := make([]string, 0, len(payload.Embedded.Errors))
		for _, item := range payload.Embedded.Errors {
			codes = append(codes, item.Code+":"+item.Path)
		}
		metadata["dwolla_errors"] = strings.Join(codes, ",")
	}
	return transport.StatusError(res, message, metadata)
}
