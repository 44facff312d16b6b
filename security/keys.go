package security

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const keyDerivationSalt = "banklink.keys.v1"

const (
	purposeSecretProvider  = "secret-provider"
	purposeIdentifierCodec = "identifier-codec"
)

// deriveKey expands the application key into an independent 32-byte key per
// purpose so one key material can back both encryption and identifier hashing.
func deriveKey(material []byte, purpose string) ([]byte, error) {
	material = bytes.TrimSpace(material)
	if len(material) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, fmt.Errorf("security: key purpose is required")
	}
	reader := hkdf.New(sha256.New, material, []byte(keyDerivationSalt), []byte(purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("security: derive %s key: %w", purpose, err)
	}
	return key, nil
}
