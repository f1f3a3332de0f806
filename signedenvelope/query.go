package signedenvelope

import "net/url"

// EncodeQueryPayload builds the canonical Base64url payload for a GET
// request's query parameters, excluding "signature" itself, per spec
// §4.4: "the signature parameter itself is excluded from the canonical
// form."
func EncodeQueryPayload(values url.Values) (string, error) {
	params := make(map[string]interface{}, len(values))
	for k, v := range values {
		if k == "signature" {
			continue
		}
		if len(v) == 1 {
			params[k] = v[0]
		} else {
			params[k] = v
		}
	}
	return EncodePayload(params)
}
