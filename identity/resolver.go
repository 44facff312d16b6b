package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-banklink/core"
	"github.com/goliatone/go-banklink/transport"
	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	maxAccountResponseBytes = 1 << 20 // 1 MiB
	defaultAccountPath      = "/account"
	defaultSessionHeader    = "X-Session"
)

var ErrSessionNotFound = errors.New("identity: session not found")

type SessionNotFoundError struct {
	Cause error
}

func (e *SessionNotFoundError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrSessionNotFound.Error()
	}
	return ErrSessionNotFound.Error() + ": " + e.Cause.Error()
}

func (e *SessionNotFoundError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrSessionNotFound
	}
	return errors.Join(ErrSessionNotFound, e.Cause)
}

func (e *SessionNotFoundError) ToServiceError() *goerrors.Error {
	message := ErrSessionNotFound.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ErrorUnauthorized)
}

func sessionNotFound(cause error) error {
	return &SessionNotFoundError{Cause: cause}
}

// AccountNormalizer maps the identity provider's account payload.
type AccountNormalizer func(payload map[string]any) core.Identity

// SessionVerifier validates a signed session token and returns its claims.
type SessionVerifier func(ctx context.Context, session string) (map[string]any, error)

type Config struct {
	Endpoint       string            `koanf:"endpoint" mapstructure:"endpoint"`
	AccountPath    string            `koanf:"account_path" mapstructure:"account_path"`
	SessionHeader  string            `koanf:"session_header" mapstructure:"session_header"`
	Headers        map[string]string `koanf:"headers" mapstructure:"headers"`
	RequestTimeout time.Duration     `koanf:"request_timeout" mapstructure:"request_timeout"`
	SigningSecret  string            `koanf:"signing_secret" mapstructure:"signing_secret"`

	HTTPClient transport.HTTPDoer `koanf:"-" mapstructure:"-"`
	Normalizer AccountNormalizer  `koanf:"-" mapstructure:"-"`
	Verifier   SessionVerifier    `koanf:"-" mapstructure:"-"`
}

// SessionResolver asks the identity provider who owns an opaque session. It
// never creates or ends sessions.
type SessionResolver struct {
	rest           *transport.RESTAdapter
	accountURL     string
	sessionHeader  string
	headers        map[string]string
	requestTimeout time.Duration
	normalizer     AccountNormalizer
	verifier       SessionVerifier
}

func NewSessionResolver(cfg Config) *SessionResolver {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	accountPath := strings.TrimSpace(cfg.AccountPath)
	if accountPath == "" {
		accountPath = defaultAccountPath
	}
	sessionHeader := strings.TrimSpace(cfg.SessionHeader)
	if sessionHeader == "" {
		sessionHeader = defaultSessionHeader
	}
	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = normalizeAccount
	}
	verifier := cfg.Verifier
	if verifier == nil && strings.TrimSpace(cfg.SigningSecret) != "" {
		verifier = HS256Verifier(cfg.SigningSecret, nil)
	}

	rest := transport.NewRESTAdapter(httpClient)
	rest.MaxResponseBodyBytes = maxAccountResponseBytes

	accountURL := ""
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		accountURL = endpoint + "/" + strings.TrimLeft(accountPath, "/")
	}

	return &SessionResolver{
		rest:           rest,
		accountURL:     accountURL,
		sessionHeader:  sessionHeader,
		headers:        copyHeaders(cfg.Headers),
		requestTimeout: requestTimeout,
		normalizer:     normalizer,
		verifier:       verifier,
	}
}

func (r *SessionResolver) CurrentIdentity(ctx context.Context, session string) (core.Identity, error) {
	if r == nil {
		return core.Identity{}, sessionNotFound(nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session = strings.TrimSpace(session)
	if session == "" {
		return core.Identity{}, sessionNotFound(fmt.Errorf("identity: session is required"))
	}

	identity, tokenErr := r.identityFromSignedSession(ctx, session)
	if tokenErr == nil && strings.TrimSpace(identity.Subject) != "" {
		return identity, nil
	}

	if r.accountURL == "" {
		if tokenErr != nil {
			return core.Identity{}, sessionNotFound(tokenErr)
		}
		return core.Identity{}, sessionNotFound(nil)
	}

	payload, err := r.fetchAccount(ctx, session)
	if err != nil {
		return core.Identity{}, err
	}
	identity = r.normalizer(payload)
	if strings.TrimSpace(identity.Subject) == "" {
		return core.Identity{}, sessionNotFound(fmt.Errorf("identity: account payload is missing subject"))
	}
	return identity, nil
}

func (r *SessionResolver) fetchAccount(ctx context.Context, session string) (map[string]any, error) {
	headers := copyHeaders(r.headers)
	headers[r.sessionHeader] = session

	res, err := r.rest.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     r.accountURL,
		Headers: withAccept(headers),
		Timeout: r.requestTimeout,
	})
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden || res.StatusCode == http.StatusNotFound {
		return nil, sessionNotFound(fmt.Errorf("identity: account endpoint returned status %d", res.StatusCode))
	}
	if !res.Success() {
		return nil, transport.StatusError(res, "identity: account lookup failed", map[string]any{"endpoint": r.accountURL})
	}
	var payload map[string]any
	if err := res.DecodeJSON(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *SessionResolver) identityFromSignedSession(ctx context.Context, session string) (core.Identity, error) {
	if r.verifier == nil {
		return core.Identity{}, fmt.Errorf("identity: session verifier is not configured")
	}
	if strings.Count(session, ".") != 2 {
		return core.Identity{}, fmt.Errorf("identity: session is not a signed token")
	}
	claims, err := r.verifier(ctx, session)
	if err != nil {
		return core.Identity{}, fmt.Errorf("identity: verify session: %w", err)
	}
	identity := normalizeClaims(claims)
	if strings.TrimSpace(identity.Subject) == "" {
		return core.Identity{}, fmt.Errorf("identity: session is missing subject")
	}
	return identity, nil
}

// DecodeUnverifiedClaims reads the claims of a signed session without checking
// the signature. Only suitable for verifiers that validate it separately.
func DecodeUnverifiedClaims(token string) (map[string]any, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("identity: invalid token format")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("identity: decode token payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("identity: decode token claims: %w", err)
	}
	return payload, nil
}

func normalizeAccount(payload map[string]any) core.Identity {
	subject := readString(payload["$id"])
	if subject == "" {
		subject = readString(payload["id"])
	}
	if subject == "" {
		subject = readString(payload["sub"])
	}
	name := readString(payload["name"])
	if name == "" {
		name = strings.TrimSpace(strings.Join(
			[]string{readString(payload["firstName"]), readString(payload["lastName"])},
			" ",
		))
	}
	return core.Identity{
		Subject: subject,
		Name:    name,
		Email:   readString(payload["email"]),
	}
}

func normalizeClaims(claims map[string]any) core.Identity {
	name := readString(claims["name"])
	if name == "" {
		name = strings.TrimSpace(strings.Join(
			[]string{readString(claims["given_name"]), readString(claims["family_name"])},
			" ",
		))
	}
	return core.Identity{
		Subject: readString(claims["sub"]),
		Name:    name,
		Email:   readString(claims["email"]),
	}
}

func withAccept(headers map[string]string) map[string]string {
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = transport.ContentTypeJSON
	}
	return headers
}

func copyHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src)+2)
	for key, value := range src {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		dst[trimmed] = strings.TrimSpace(value)
	}
	return dst
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case json.Number:
		return strings.TrimSpace(typed.String())
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

var _ core.IdentityGateway = (*SessionResolver)(nil)
