package engine

import (
	"fmt"
	"regexp"
	"strings"
)

var templateToken = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// resolveParams substitutes any {{path}} token inside string param values
// with the dotted-path lookup against ctx. Non-string values pass through
// unchanged; maps and slices are walked recursively.
func resolveParams(params map[string]any, ctx map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = resolveValue(v, ctx)
	}
	return out
}

func resolveValue(v any, ctx map[string]any) any {
	switch val := v.(type) {
	case string:
		return resolveString(val, ctx)
	case map[string]any:
		return resolveParams(val, ctx)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, ctx)
		}
		return out
	default:
		return v
	}
}

func resolveString(s string, ctx map[string]any) any {
	matches := templateToken.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}

	// A string that is exactly one token resolves to the looked-up value's
	// native type (so {{output.count}} can stay a number); otherwise tokens
	// are substituted inline as strings.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		path := s[matches[0][2]:matches[0][3]]
		if v, ok := lookupPath(ctx, path); ok {
			return v
		}
		return ""
	}

	return templateToken.ReplaceAllStringFunc(s, func(token string) string {
		path := strings.TrimSpace(token[2 : len(token)-2])
		v, ok := lookupPath(ctx, path)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%v", v)
	})
}

func lookupPath(ctx map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = ctx
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
