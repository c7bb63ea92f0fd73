package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fencedAnyRe     = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

	// compiled field patterns, keyed by field name
	stringFieldRes sync.Map
	numberFieldRes sync.Map
)

// ParseAIJSON extracts and parses JSON from AI output that may contain:
// - Pure JSON
// - JSON wrapped in markdown code blocks (```json ... ```)
// - JSON with surrounding text
// - Slightly malformed JSON (trailing commas, bare keys, single quotes)
func ParseAIJSON(input string, target interface{}) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("empty input")
	}

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if extracted := extractFromMarkdown(input); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), target); err == nil {
			return nil
		}
	}

	if extracted := extractJSONFromText(input); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), target); err == nil {
			return nil
		}
		if cleaned := cleanAndFixJSON(extracted); cleaned != "" {
			if err := json.Unmarshal([]byte(cleaned), target); err == nil {
				return nil
			}
		}
	}

	if cleaned := cleanAndFixJSON(input); cleaned != "" {
		if err := json.Unmarshal([]byte(cleaned), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncateString(input, 100))
}

// ExtractStringField finds "key": "value" anywhere in the input, including
// truncated JSON that no longer parses.
func ExtractStringField(input, key string) (string, bool) {
	re := fieldPattern(&stringFieldRes, key, `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatch(input)
	if len(m) < 2 {
		return "", false
	}
	var s string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &s); err != nil {
		return m[1], true
	}
	return s, true
}

// ExtractNumberField finds "key": N (optionally quoted) anywhere in the input.
func ExtractNumberField(input, key string) (float64, bool) {
	re := fieldPattern(&numberFieldRes, key, `"\s*:\s*"?(-?\d+(?:\.\d+)?)`)
	m := re.FindStringSubmatch(input)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// fieldPattern compiles `"key"` + suffix once per key
func fieldPattern(cache *sync.Map, key, suffix string) *regexp.Regexp {
	if re, ok := cache.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := cache.LoadOrStore(key, regexp.MustCompile(`"`+regexp.QuoteMeta(key)+suffix))
	return re.(*regexp.Regexp)
}

// extractFromMarkdown extracts JSON from markdown code blocks
// Supports: ```json {...} ```, ```{...}```, or ```\n{...}\n```
func extractFromMarkdown(input string) string {
	if matches := fencedJSONRe.FindStringSubmatch(input); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if matches := fencedAnyRe.FindStringSubmatch(input); len(matches) > 1 {
		content := strings.TrimSpace(matches[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}

	return ""
}

// extractJSONFromText finds JSON object or array in surrounding text
func extractJSONFromText(input string) string {
	if start := strings.Index(input, "{"); start >= 0 {
		if extracted := extractBalancedBraces(input[start:], '{', '}'); extracted != "" {
			return extracted
		}
	}

	if start := strings.Index(input, "["); start >= 0 {
		if extracted := extractBalancedBraces(input[start:], '[', ']'); extracted != "" {
			return extracted
		}
	}

	return ""
}

// extractBalancedBraces extracts content with balanced braces
func extractBalancedBraces(input string, open, close rune) string {
	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		if ch == '\\' {
			escape = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if ch == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// cleanAndFixJSON attempts to fix common JSON formatting issues
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "\ufeff")

	// Remove trailing commas before closing braces/brackets
	s = trailingCommaRe.ReplaceAllString(s, "$1")

	// {word: "value"} -> {"word": "value"}
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)

	s = fixSingleQuotes(s)

	return controlCharRe.ReplaceAllString(s, "")
}

// fixSingleQuotes converts single-quoted strings to double-quoted ones.
// Apostrophes inside words are left alone.
func fixSingleQuotes(input string) string {
	var result strings.Builder
	inDouble, inSingle, escape := false, false, false
	var prev rune

	for i, ch := range input {
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '"' && inSingle:
			result.WriteString(`\"`)
			prev = ch
			continue
		case ch == '\'' && !inDouble:
			if !inSingle && (i == 0 || strings.ContainsRune(":,[{ ", prev)) {
				inSingle = true
				result.WriteRune('"')
				prev = ch
				continue
			}
			if inSingle {
				next := input[i+1:]
				if next == "" || strings.ContainsAny(next[:1], ",}]: ") {
					inSingle = false
					result.WriteRune('"')
					prev = ch
					continue
				}
			}
		}

		result.WriteRune(ch)
		prev = ch
	}

	return result.String()
}

// truncateString truncates a string to maxLen bytes
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
