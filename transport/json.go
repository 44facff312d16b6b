package transport

import (
	"context"
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const ContentTypeJSON = "application/json"

// DoJSON encodes in as the request body and returns the raw response. A nil
// in sends no body.
func (a *RESTAdapter) DoJSON(ctx context.Context, req Request, in any) (Response, error) {
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return Response{}, transportWrapError(
				err,
				goerrors.CategoryBadInput,
				"transport: encode json request",
				http.StatusBadRequest,
				nil,
			)
		}
		req.Body = body
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	if _, ok := req.Headers["Content-Type"]; !ok && in != nil {
		req.Headers["Content-Type"] = ContentTypeJSON
	}
	if _, ok := req.Headers["Accept"]; !ok {
		req.Headers["Accept"] = ContentTypeJSON
	}
	return a.Do(ctx, req)
}

// DecodeJSON unmarshals the response body into out.
func (r Response) DecodeJSON(out any) error {
	if out == nil {
		return nil
	}
	if len(r.Body) == 0 {
		return transportError(
			"transport: empty json response body",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": r.StatusCode},
		)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode json response",
			http.StatusBadGateway,
			map[string]any{"status_code": r.StatusCode},
		)
	}
	return nil
}
