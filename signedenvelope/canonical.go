// Package signedenvelope implements the signed-request / signed-response
// wire format of spec §4.4-4.5: canonical Base64url-JSON payloads signed
// with Ed25519.
package signedenvelope

import (
	"encoding/json"
	"sort"
)

// Canonicalize recursively key-sorts JSON object members and re-encodes
// with no whitespace, preserving array order, satisfying spec P9's
// idempotence property: Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", err
	}
	sorted := sortKeys(decoded)
	out, err := json.Marshal(sorted)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// sortKeys recursively converts map[string]interface{} into an
// order-preserving structure by rebuilding the encoding through
// json.Marshal of an ordered key list; Go's encoding/json already
// marshals map[string]T with sorted keys, so recursing into nested maps
// and slices is sufficient to guarantee canonical output.
func sortKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortKeys(val[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sortKeys(item)
		}
		return out
	default:
		return val
	}
}
