package llm

import (
	"encoding/base64"
	"regexp"
)

var (
	reDataURL = regexp.MustCompile(`(?is)\bdata:(image|video|audio)/[a-z0-9+.-]+;base64,[a-z0-9+/=\r\n]+`)
	reImgTag  = regexp.MustCompile(`(?is)<img[^>]*src=["']data:(image)/[^"']+["'][^>]*>`)
)

const redactedMedia = "[REDACTED media]"

// RedactMedia walks any JSON-like value and replaces media payloads with a marker.
// Screenshots submitted to the scam detector must never reach the logs.
func RedactMedia(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = RedactMedia(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = RedactMedia(vv)
		}
		return out
	case string:
		if reDataURL.MatchString(x) || reImgTag.MatchString(x) || looksLikeBase64Blob(x) {
			return redactedMedia
		}
		return x
	default:
		return v
	}
}

func looksLikeBase64Blob(s string) bool {
	if len(s) < 512 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}
