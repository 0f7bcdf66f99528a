package food

import (
	"encoding/json"
	"fmt"
	"strings"
)

// keywordReplacer strips characters that are special to LIKE/ILIKE patterns.
var keywordReplacer = strings.NewReplacer("%", "", "_", "", `\`, "")

// SanitizeKeyword removes pattern wildcards and the escape character from a
// user-supplied keyword and trims surrounding whitespace.
func SanitizeKeyword(keyword string) string {
	return strings.TrimSpace(keywordReplacer.Replace(keyword))
}

// ContainsPattern wraps a sanitized keyword for substring matching.
func ContainsPattern(keyword string) string {
	return "%" + SanitizeKeyword(keyword) + "%"
}

// NormalizeTag lowercases a tag, trims it and collapses inner whitespace.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.Join(strings.Fields(tag), " "))
}

// NormalizeTags coerces a loosely typed tag field into a list of strings.
// It accepts nil, a single string, a JSON array encoded as a string,
// []string and []any. Blank entries are dropped. The original casing is kept;
// callers compare with NormalizeTag.
func NormalizeTags(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case []string:
		return compactTags(v)
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if t == nil {
				continue
			}
			if s, ok := t.(string); ok {
				tags = append(tags, s)
				continue
			}
			tags = append(tags, fmt.Sprint(t))
		}
		return compactTags(tags)
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			var list []string
			if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
				return compactTags(list)
			}
		}
		return compactTags([]string{v})
	default:
		return compactTags([]string{fmt.Sprint(v)})
	}
}

func compactTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
