package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var ErrEmptyResponse = errors.New("prompt: empty model response")

// Decode unmarshals a model response into v. Models sometimes wrap JSON in
// markdown fences or double-escape unicode, so both are tolerated.
func Decode(raw []byte, v any) error {
	raw = stripFences(raw)
	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	norm, err := normalizeJSONUnicode(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line, e.g. ```json
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

// normalizeJSONUnicode parses JSON and unescapes double-escaped unicode
// sequences (e.g. "\\u003e") inside string values.
func normalizeJSONUnicode(raw []byte) ([]byte, error) {
	var anyVal any
	if err := json.Unmarshal(raw, &anyVal); err != nil {
		return nil, err
	}
	// The whole payload may itself be a quoted JSON document.
	if s, ok := anyVal.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			anyVal = inner
		}
	}
	return json.Marshal(deepUnescape(anyVal))
}

func unescapeUnicodeString(s string) (string, error) {
	if !strings.Contains(s, `\u`) {
		return s, nil
	}
	esc := strings.ReplaceAll(s, `"`, `\"`)
	var out string
	if err := json.Unmarshal([]byte(`"`+esc+`"`), &out); err != nil {
		return "", err
	}
	return out, nil
}

func deepUnescape(v any) any {
	switch x := v.(type) {
	case string:
		if s, err := unescapeUnicodeString(x); err == nil {
			return s
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepUnescape(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepUnescape(vv)
		}
		return out
	default:
		return v
	}
}
