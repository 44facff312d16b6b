package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != TextCodeRemoteFailure {
		t.Fatalf("expected %q text code, got %q", TextCodeRemoteFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), Request{})
	if err == nil {
		t.Fatalf("expected nil adapter error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != TextCodeInternal {
		t.Fatalf("expected %q text code, got %q", TextCodeInternal, rich.TextCode)
	}
}

func TestRESTAdapter_RejectsRelativeURL(t *testing.T) {
	adapter := NewRESTAdapter(http.DefaultClient)
	_, err := adapter.Do(context.Background(), Request{URL: "/link/token/create"})

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != TextCodeBadInput {
		t.Fatalf("expected %q, got %q", TextCodeBadInput, rich.TextCode)
	}
}

func TestRESTAdapter_DoJSONSendsHeadersAndBody(t *testing.T) {
	var gotContentType, gotAccept, gotCustom, gotBody, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		gotCustom = r.Header.Get("X-Custom")
		gotQuery = r.URL.Query().Get("page")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Location", "https://example.test/resource/1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	res, err := adapter.DoJSON(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     server.URL + "/resource",
		Headers: map[string]string{"X-Custom": "yes"},
		Query:   map[string]string{"page": "2"},
	}, map[string]string{"name": "checking"})
	if err != nil {
		t.Fatalf("do json: %v", err)
	}
	if !res.Success() || res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	if gotContentType != ContentTypeJSON || gotAccept != ContentTypeJSON {
		t.Fatalf("unexpected content negotiation headers %q %q", gotContentType, gotAccept)
	}
	if gotCustom != "yes" || gotQuery != "2" {
		t.Fatalf("expected custom header and query, got %q %q", gotCustom, gotQuery)
	}
	if gotBody != `{"name":"checking"}` {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if res.Header("Location") != "https://example.test/resource/1" {
		t.Fatalf("expected location header, got %q", res.Header("Location"))
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := res.DecodeJSON(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "1" {
		t.Fatalf("expected id 1, got %q", decoded.ID)
	}
}

func TestRESTAdapter_TimeoutMapsToTimeoutCode(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	adapter := NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), Request{URL: server.URL, Timeout: 20 * time.Millisecond})

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != TextCodeTimeout {
		t.Fatalf("expected %q, got %q", TextCodeTimeout, rich.TextCode)
	}
}

func TestStatusError_MapsStatusToCategory(t *testing.T) {
	cases := []struct {
		status   int
		category goerrors.Category
		textCode string
	}{
		{http.StatusUnauthorized, goerrors.CategoryAuth, TextCodeUnauthorized},
		{http.StatusForbidden, goerrors.CategoryAuthz, TextCodeUnauthorized},
		{http.StatusTooManyRequests, goerrors.CategoryRateLimit, TextCodeRateLimited},
		{http.StatusBadRequest, goerrors.CategoryExternal, TextCodeRemoteFailure},
		{http.StatusInternalServerError, goerrors.CategoryExternal, TextCodeRemoteFailure},
	}
	for _, tc := range cases {
		err := StatusError(Response{StatusCode: tc.status}, "remote rejected", map[string]any{"error_code": "X"})
		if err.Category != tc.category {
			t.Fatalf("status %d: expected category %q, got %q", tc.status, tc.category, err.Category)
		}
		if err.TextCode != tc.textCode {
			t.Fatalf("status %d: expected %q, got %q", tc.status, tc.textCode, err.TextCode)
		}
		if err.Metadata["status_code"] != tc.status || err.Metadata["error_code"] != "X" {
			t.Fatalf("status %d: unexpected metadata %#v", tc.status, err.Metadata)
		}
	}
}
