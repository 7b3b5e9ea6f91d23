package rules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var paramToken = regexp.MustCompile(`\{\{\s*payload\.([A-Za-z0-9_]+)\s*\}\}`)

// RenderActionParams substitutes `{{payload.<key>}}` tokens in a rule's
// action params with top-level values from the trigger instance payload.
// A string value that is exactly one token takes the payload value's type;
// tokens embedded in larger strings are stringified in place. Tokens whose
// key is absent from the payload render as an empty string.
func RenderActionParams(actionParams json.RawMessage, payload map[string]interface{}) (json.RawMessage, error) {
	if len(actionParams) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(actionParams, &decoded); err != nil {
		return nil, fmt.Errorf("parse action params: %w", err)
	}

	rendered := substituteValue(decoded, payload)

	out, err := json.Marshal(rendered)
	if err != nil {
		return nil, fmt.Errorf("marshal rendered params: %w", err)
	}

	return out, nil
}

func substituteValue(value interface{}, payload map[string]interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return substituteString(v, payload)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, nested := range v {
			out[key] = substituteValue(nested, payload)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = substituteValue(nested, payload)
		}
		return out
	default:
		return value
	}
}

func substituteString(s string, payload map[string]interface{}) interface{} {
	match := paramToken.FindStringSubmatch(s)
	if match != nil && strings.TrimSpace(s) == match[0] {
		// Whole-string token keeps the payload value's native type.
		return payload[match[1]]
	}

	return paramToken.ReplaceAllStringFunc(s, func(token string) string {
		key := paramToken.FindStringSubmatch(token)[1]
		val, ok := payload[key]
		if !ok {
			return ""
		}
		return fmt.Sprintf("%v", val)
	})
}
