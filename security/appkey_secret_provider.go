package security

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-banklink/core"
)

type Option func(*AppKeySecretProvider)

// AppKeySecretProvider seals secrets with AES-256-GCM under a key derived from
// the application key. Retired keys stay available for decryption only.
type AppKeySecretProvider struct {
	material []byte
	key      []byte
	keyID    string
	version  int
	retired  []retiredKey
}

type retiredKey struct {
	keyID    string
	version  int
	material []byte
	key      []byte
}

func WithKeyID(id string) Option {
	return func(provider *AppKeySecretProvider) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			provider.keyID = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(provider *AppKeySecretProvider) {
		if version > 0 {
			provider.version = version
		}
	}
}

// WithRetiredKey registers a previous key so records sealed before a rotation
// can still be read.
func WithRetiredKey(keyID string, version int, material []byte) Option {
	return func(provider *AppKeySecretProvider) {
		provider.retired = append(provider.retired, retiredKey{
			keyID:    strings.TrimSpace(keyID),
			version:  version,
			material: append([]byte(nil), material...),
		})
	}
}

func NewAppKeySecretProvider(keyMaterial []byte, opts ...Option) (*AppKeySecretProvider, error) {
	provider := &AppKeySecretProvider{
		material: append([]byte(nil), keyMaterial...),
		keyID:    "app-key",
		version:  1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(provider)
	}

	key, err := deriveKey(provider.material, purposeSecretProvider)
	if err != nil {
		return nil, err
	}
	provider.key = key
	for i := range provider.retired {
		if provider.retired[i].keyID == "" {
			return nil, fmt.Errorf("security: retired key id is required")
		}
		if provider.retired[i].keyID == provider.keyID && provider.retired[i].version == provider.version {
			return nil, fmt.Errorf("security: retired key %s/v%d collides with the active key", provider.keyID, provider.version)
		}
		retired, err := deriveKey(provider.retired[i].material, purposeSecretProvider)
		if err != nil {
			return nil, fmt.Errorf("security: retired key %s: %w", provider.retired[i].keyID, err)
		}
		provider.retired[i].key = retired
	}
	return provider, nil
}

func NewAppKeySecretProviderFromString(key string, opts ...Option) (*AppKeySecretProvider, error) {
	return NewAppKeySecretProvider([]byte(key), opts...)
}

func (p *AppKeySecretProvider) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	gcm, err := newGCM(p.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: nonce generation failed: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, p.associatedData(p.keyID, p.version))
	return encodeEnvelope(envelope{
		KeyID:      p.keyID,
		Version:    p.version,
		Algorithm:  envelopeAlgorithm,
		Nonce:      encodePayload(nonce),
		Ciphertext: encodePayload(sealed),
	})
}

func (p *AppKeySecretProvider) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	env, err := decodeEnvelope(ciphertext)
	if err != nil {
		return nil, err
	}
	key, err := p.keyFor(env.KeyID, env.Version)
	if err != nil {
		return nil, err
	}
	nonce, err := decodePayload("nonce", env.Nonce)
	if err != nil {
		return nil, err
	}
	sealed, err := decodePayload("ciphertext payload", env.Ciphertext)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("security: invalid nonce length %d", len(nonce))
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, p.associatedData(env.KeyID, env.Version))
	if err != nil {
		return nil, fmt.Errorf("security: decrypt payload: %w", err)
	}
	return plaintext, nil
}

func (p *AppKeySecretProvider) KeyID() string {
	if p == nil {
		return ""
	}
	return p.keyID
}

func (p *AppKeySecretProvider) Version() int {
	if p == nil {
		return 0
	}
	return p.version
}

func (p *AppKeySecretProvider) Metadata() (string, int) {
	return p.KeyID(), p.Version()
}

// NeedsRotation reports whether ciphertext was sealed by a retired key.
func (p *AppKeySecretProvider) NeedsRotation(ciphertext []byte) (bool, error) {
	meta, err := ParseEnvelopeMetadata(ciphertext)
	if err != nil {
		return false, err
	}
	return meta.KeyID != p.KeyID() || meta.Version != p.Version(), nil
}

func (p *AppKeySecretProvider) keyFor(keyID string, version int) ([]byte, error) {
	if keyID == p.keyID && (version == 0 || version == p.version) {
		return p.key, nil
	}
	for _, retired := range p.retired {
		if retired.keyID == keyID && (version == 0 || retired.version == version) {
			return retired.key, nil
		}
	}
	return nil, fmt.Errorf("security: key id mismatch: no key for %q v%d", keyID, version)
}

func (p *AppKeySecretProvider) associatedData(keyID string, version int) []byte {
	return []byte(fmt.Sprintf("%s/%d", keyID, version))
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

var _ core.SecretProvider = (*AppKeySecretProvider)(nil)
