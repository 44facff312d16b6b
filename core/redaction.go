package core

import "strings"

const RedactedValue = "[REDACTED]"

func RedactSensitiveMap(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(metadata)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

// sensitiveKeyFragments are matched against lowercased keys with '_' and '-'
// removed, so access_token, accessToken and access-token all match. The
// linking credentials (public_token, access_token, processor_token,
// link_token and the funding rail's plaidToken field) are listed explicitly
// next to the generic fragments, as are bank account numbers.
var sensitiveKeyFragments = []string{
	"publictoken",
	"accesstoken",
	"processortoken",
	"linktoken",
	"plaidtoken",
	"accountnumber",
	"routingnumber",
	"password",
	"secret",
	"token",
	"authorization",
	"apikey",
	"accesskey",
	"credential",
	"signature",
}

// shouldRedactKey reports whether a metadata key holds a credential or bank
// account number. Identifier keys from isTraceabilityKey stay visible.
func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	normalized := strings.NewReplacer("_", "", "-", "").Replace(key)
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "user_id",
		"item_id",
		"account_id",
		"attempt_id",
		"linkage_id",
		"shareable_id",
		"idempotency_key",
		"trace_id",
		"request_id":
		return true
	default:
		return false
	}
}
