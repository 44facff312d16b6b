package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-banklink/core"
)

type keyMetadataProvider interface {
	Metadata() (string, int)
}

// tokenSealer encrypts access tokens before they reach a row and records the
// key that sealed them.
type tokenSealer struct {
	secrets core.SecretProvider
}

type sealedToken struct {
	Ciphertext []byte
	KeyID      string
	Version    int
}

func (s tokenSealer) seal(ctx context.Context, token string) (sealedToken, error) {
	if s.secrets == nil {
		return sealedToken{}, fmt.Errorf("sqlstore: secret provider is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return sealedToken{}, nil
	}
	ciphertext, err := s.secrets.Encrypt(ctx, []byte(token))
	if err != nil {
		return sealedToken{}, fmt.Errorf("sqlstore: encrypt access token: %w", err)
	}
	sealed := sealedToken{Ciphertext: ciphertext}
	if meta, ok := s.secrets.(keyMetadataProvider); ok {
		sealed.KeyID, sealed.Version = meta.Metadata()
	}
	return sealed, nil
}

func (s tokenSealer) open(ctx context.Context, ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 {
		return "", nil
	}
	if s.secrets == nil {
		return "", fmt.Errorf("sqlstore: secret provider is required")
	}
	plaintext, err := s.secrets.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("sqlstore: decrypt access token: %w", err)
	}
	return string(plaintext), nil
}
