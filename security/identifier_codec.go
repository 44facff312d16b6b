package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/goliatone/go-banklink/core"
)

// HMACIdentifierCodec derives shareable identifiers with HMAC-SHA256. Output
// is stable for a given key and cannot be reversed without it.
type HMACIdentifierCodec struct {
	key []byte
}

func NewHMACIdentifierCodec(keyMaterial []byte) (*HMACIdentifierCodec, error) {
	key, err := deriveKey(keyMaterial, purposeIdentifierCodec)
	if err != nil {
		return nil, err
	}
	return &HMACIdentifierCodec{key: key}, nil
}

func NewHMACIdentifierCodecFromString(key string) (*HMACIdentifierCodec, error) {
	return NewHMACIdentifierCodec([]byte(key))
}

func (c *HMACIdentifierCodec) EncryptID(raw string) (string, error) {
	if c == nil || len(c.key) == 0 {
		return "", fmt.Errorf("security: identifier codec is not configured")
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("security: identifier is required")
	}
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Matches reports whether shareable was produced from raw.
func (c *HMACIdentifierCodec) Matches(raw, shareable string) bool {
	expected, err := c.EncryptID(raw)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(shareable))
}

var _ core.IdentifierCodec = (*HMACIdentifierCodec)(nil)
