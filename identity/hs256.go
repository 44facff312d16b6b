package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var hs256Methods = []string{jwt.SigningMethodHS256.Alg()}

// SignHS256 issues a compact HS256 session token. Identity providers that
// share a signing secret with this service use it to mint sessions.
func SignHS256(keyID string, secret string, claims map[string]any) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("identity: session signing secret is required")
	}
	mapped := jwt.MapClaims{}
	for key, value := range claims {
		mapped[key] = value
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapped)
	if keyID = strings.TrimSpace(keyID); keyID != "" {
		token.Header["kid"] = keyID
	}
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("identity: sign session: %w", err)
	}
	return signed, nil
}

// HS256Verifier checks the signature of sessions minted with SignHS256 and
// validates exp and nbf against now. Both claims are optional but must be
// numeric when present.
func HS256Verifier(secret string, now func() time.Time) SessionVerifier {
	secret = strings.TrimSpace(secret)
	if now == nil {
		now = time.Now
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods(hs256Methods),
		jwt.WithoutClaimsValidation(),
	)
	return func(_ context.Context, session string) (map[string]any, error) {
		if secret == "" {
			return nil, fmt.Errorf("identity: session signing secret is required")
		}
		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(strings.TrimSpace(session), claims, func(*jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil {
			return nil, fmt.Errorf("identity: verify session: %w", err)
		}
		if !token.Valid {
			return nil, fmt.Errorf("identity: token signature mismatch")
		}
		if err := checkTimeClaims(claims, now()); err != nil {
			return nil, err
		}
		return map[string]any(claims), nil
	}
}

func checkTimeClaims(claims jwt.MapClaims, now time.Time) error {
	for _, name := range []string{"exp", "nbf"} {
		value, ok := claims[name]
		if !ok {
			continue
		}
		if _, numeric := value.(float64); !numeric {
			return fmt.Errorf("identity: %s claim must be numeric", name)
		}
	}
	if !claims.VerifyExpiresAt(now.Unix(), false) {
		return fmt.Errorf("identity: token expired")
	}
	if !claims.VerifyNotBefore(now.Unix(), false) {
		return fmt.Errorf("identity: token not valid yet")
	}
	return nil
}
