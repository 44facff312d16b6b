package dwolla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-banklink/core"
)

type railServer struct {
	server        *httptest.Server
	tokenRequests atomic.Int32
	lastBody      map[string]any
	lastHeaders   http.Header
	respond       func(w http.ResponseWriter, r *http.Request)
}

func newRailServer(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*railServer, *Client) {
	t.Helper()
	rail := &railServer{respond: respond}
	rail.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			rail.tokenRequests.Add(1)
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse token form: %v", err)
			}
			if r.Form.Get("grant_type") != "client_credentials" {
				t.Errorf("unexpected grant type %q", r.Form.Get("grant_type"))
			}
			id, secret, ok := r.BasicAuth()
			if !ok || id != "app_key" || secret != "app_secret" {
				t.Errorf("expected basic auth client credentials")
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"app-token","token_type":"bearer","expires_in":3600}`))
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer app-token" {
			t.Errorf("expected bearer app token, got %q", got)
		}
		rail.lastHeaders = r.Header.Clone()
		rail.lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&rail.lastBody)
		rail.respond(w, r)
	}))
	t.Cleanup(rail.server.Close)

	client, err := New(Config{
		BaseURL:      rail.server.URL,
		ClientID:     "app_key",
		ClientSecret: "app_secret",
	}, WithHTTPClient(rail.server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return rail, client
}

func fundingRequest() core.FundingSourceRequest {
	return core.FundingSourceRequest{
		CustomerID:     "cust_1",
		ProcessorToken: "processor-sandbox-1",
		Name:           "Plaid Checking",
	}
}

func TestClient_CreateFundingSourceReturnsLocation(t *testing.T) {
	rail, client := newRailServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/customers/cust_1/funding-sources" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Location", "https://api-sandbox.dwolla.com/funding-sources/fs_1")
		w.WriteHeader(http.StatusCreated)
	})

	source, err := client.CreateFundingSource(context.Background(), fundingRequest())
	if err != nil {
		t.Fatalf("create funding source: %v", err)
	}
	if source.URL != "https://api-sandbox.dwolla.com/funding-sources/fs_1" || !source.Created {
		t.Fatalf("unexpected funding source %#v", source)
	}
	if rail.lastBody["plaidToken"] != "processor-sandbox-1" || rail.lastBody["name"] != "Plaid Checking" {
		t.Fatalf("unexpected body %#v", rail.lastBody)
	}
	if rail.lastHeaders.Get("Accept") != ContentTypeHAL || rail.lastHeaders.Get("Content-Type") != ContentTypeHAL {
		t.Fatalf("expected hal content negotiation, got %#v", rail.lastHeaders)
	}
	if rail.lastHeaders.Get("Idempotency-Key") != IdempotencyKey("cust_1", "processor-sandbox-1") {
		t.Fatalf("unexpected idempotency key %q", rail.lastHeaders.Get("Idempotency-Key"))
	}
	if rail.tokenRequests.Load() != 1 {
		t.Fatalf("expected one token request, got %d", rail.tokenRequests.Load())
	}
}

func TestClient_CreateFundingSourceEscapesCustomerID(t *testing.T) {
	var gotPath, gotQuery string
	_, client := newRailServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		w.Header().Set("Location", "https://api-sandbox.dwolla.com/funding-sources/fs_1")
		w.WriteHeader(http.StatusCreated)
	})

	req := fundingRequest()
	req.CustomerID = "cust/../admin?x=1"
	if _, err := client.CreateFundingSource(context.Background(), req); err != nil {
		t.Fatalf("create funding source: %v", err)
	}
	if gotPath != "/customers/cust%2F..%2Fadmin%3Fx=1/funding-sources" {
		t.Fatalf("expected escaped customer segment, got %q", gotPath)
	}
	if gotQuery != "" {
		t.Fatalf("expected no query string, got %q", gotQuery)
	}
}

func TestClient_CreateFundingSourceDuplicateReturnsExisting(t *testing.T) {
	_, client := newRailServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentTypeHAL)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"DuplicateResource","message":"Bank already exists: id=fs_1","_links":{"about":{"href":"https://api-sandbox.dwolla.com/funding-sources/fs_1"}}}`))
	})

	source, err := client.CreateFundingSource(context.Background(), fundingRequest())
	if err != nil {
		t.Fatalf("expected duplicate to resolve, got %v", err)
	}
	if source.URL != "https://api-sandbox.dwolla.com/funding-sources/fs_1" || source.Created {
		t.Fatalf("unexpected funding source %#v", source)
	}
}

func TestClient_CreateFundingSourceMissingLocationFails(t *testing.T) {
	_, client := newRailServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	source, err := client.CreateFundingSource(context.Background(), fundingRequest())
	if err == nil {
		t.Fatalf("expected missing location error, got %#v", source)
	}
	if !core.HasTextCode(err, core.ErrorFundingSourceFailed) {
		t.Fatalf("expected funding source failed code, got %v", err)
	}
	if source.URL != "" {
		t.Fatalf("expected empty funding source on error")
	}
}

func TestClient_CreateFundingSourceValidationError(t *testing.T) {
	_, client := newRailServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"ValidationError","message":"Validation error(s) present.","_embedded":{"errors":[{"code":"Invalid","message":"Invalid token","path":"/plaidToken"}]}}`))
	})

	_, err := client.CreateFundingSource(context.Background(), fundingRequest())
	if !core.HasTextCode(err, core.ErrorRemoteFailure) {
		t.Fatalf("expected remote failure, got %v", err)
	}
}

func TestClient_CreateFundingSourceRejectsMissingFields(t *testing.T) {
	client, err := New(Config{ClientID: "app_key", ClientSecret: "app_secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	for _, req := range []core.FundingSourceRequest{
		{ProcessorToken: "p", Name: "n"},
		{CustomerID: "c", Name: "n"},
		{CustomerID: "c", ProcessorToken: "p"},
	} {
		if _, err := client.CreateFundingSource(context.Background(), req); !core.HasTextCode(err, core.ErrorBadInput) {
			t.Fatalf("expected bad input for %#v, got %v", req, err)
		}
	}
}

func TestIdempotencyKey_IsStablePerPair(t *testing.T) {
	a := IdempotencyKey("cust_1", "tok_1")
	if a != IdempotencyKey("cust_1", "tok_1") {
		t.Fatalf("expected deterministic key")
	}
	if a == IdempotencyKey("cust_1", "tok_2") || a == IdempotencyKey("cust_2", "tok_1") {
		t.Fatalf("expected distinct keys per pair")
	}
}

func TestCustomerIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://api-sandbox.dwolla.com/customers/abc-123":  "abc-123",
		"https://api-sandbox.dwolla.com/customers/abc-123/": "abc-123",
		"https://api-sandbox.dwolla.com/funding-sources/x":  "",
		"https://api.dwolla.com/customers/abc/funding":      "",
		"": "",
	}
	for input, want := range cases {
		if got := CustomerIDFromURL(input); got != want {
			t.Fatalf("CustomerIDFromURL(%q) = %q, want %q", input, got, want)
		}
	}
}
