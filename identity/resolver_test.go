package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-banklink/core"
)

func TestSessionResolver_CurrentIdentity_FromAccountEndpoint(t *testing.T) {
	var sessionHeader, projectHeader, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		sessionHeader = strings.TrimSpace(r.Header.Get("X-Appwrite-Session"))
		projectHeader = strings.TrimSpace(r.Header.Get("X-Appwrite-Project"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"$id":   "user_123",
			"name":  "Jane Doe",
			"email": "jane@example.com",
		})
	}))
	defer server.Close()

	resolver := NewSessionResolver(Config{
		Endpoint:      server.URL + "/v1",
		SessionHeader: "X-Appwrite-Session",
		Headers:       map[string]string{"X-Appwrite-Project": "project_1"},
		HTTPClient:    server.Client(),
	})
	identity, err := resolver.CurrentIdentity(context.Background(), "session_abc")
	if err != nil {
		t.Fatalf("current identity: %v", err)
	}
	if path != "/v1/account" {
		t.Fatalf("expected account path, got %q", path)
	}
	if sessionHeader != "session_abc" || projectHeader != "project_1" {
		t.Fatalf("expected session and project headers, got %q %q", sessionHeader, projectHeader)
	}
	if identity.Subject != "user_123" || identity.Name != "Jane Doe" || identity.Email != "jane@example.com" {
		t.Fatalf("unexpected identity %#v", identity)
	}
}

func TestSessionResolver_CurrentIdentity_UnauthorizedIsSessionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	resolver := NewSessionResolver(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	_, err := resolver.CurrentIdentity(context.Background(), "expired")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionResolver_CurrentIdentity_ServerErrorIsRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resolver := NewSessionResolver(Config{Endpoint: server.URL, HTTPClient: server.Client()})
	_, err := resolver.CurrentIdentity(context.Background(), "session_abc")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if !core.HasTextCode(err, core.ErrorRemoteFailure) {
		t.Fatalf("expected remote failure text code, got %v", err)
	}
}

func TestSessionResolver_CurrentIdentity_RequiresSession(t *testing.T) {
	resolver := NewSessionResolver(Config{})
	_, err := resolver.CurrentIdentity(context.Background(), "  ")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionResolver_CurrentIdentity_UsesConfiguredVerifier(t *testing.T) {
	called := false
	resolver := NewSessionResolver(Config{
		Verifier: func(_ context.Context, session string) (map[string]any, error) {
			called = true
			return DecodeUnverifiedClaims(session)
		},
	})
	identity, err := resolver.CurrentIdentity(context.Background(), mustJWTToken(map[string]any{
		"sub":         "verified_sub_1",
		"given_name":  "Jane",
		"family_name": "Doe",
	}))
	if err != nil {
		t.Fatalf("current identity with verifier: %v", err)
	}
	if !called {
		t.Fatalf("expected configured verifier to be called")
	}
	if identity.Subject != "verified_sub_1" || identity.Name != "Jane Doe" {
		t.Fatalf("unexpected identity %#v", identity)
	}
}

func TestSessionNotFoundError_ToServiceError(t *testing.T) {
	err := &SessionNotFoundError{Cause: errors.New("upstream rejected session")}
	mapped := err.ToServiceError()
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode != core.ErrorUnauthorized {
		t.Fatalf("expected %q text code, got %q", core.ErrorUnauthorized, mapped.TextCode)
	}
	if mapped.Code != http.StatusUnauthorized {
		t.Fatalf("expected status code 401, got %d", mapped.Code)
	}
}

func TestSessionNotFoundError_PreservesSentinel(t *testing.T) {
	err := sessionNotFound(errors.New("token parse failed"))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected errors.Is(err, ErrSessionNotFound) to be true")
	}
}

func mustJWTToken(claims map[string]any) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		panic(err)
	}
	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	return header + "." + encodedPayload + ".signature"
}
