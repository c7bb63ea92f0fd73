package utils

import (
	"strings"
)

// keywordAliases maps a canonical keyword to the tag spellings collectors emit
var keywordAliases = map[string][]string{
	"spa":        {"spa", "onsen", "hot spring", "온천", "스파"},
	"park":       {"park", "공원"},
	"garden":     {"garden", "정원"},
	"museum":     {"museum", "박물관", "미술관"},
	"market":     {"market", "marketplace", "시장"},
	"night view": {"night view", "nightview", "야경"},
	"rooftop":    {"rooftop", "roof top", "루프탑"},
	"kids":       {"kids", "kid friendly", "kid-friendly", "아이"},
	"family":     {"family", "가족"},
	"cafe":       {"cafe", "café", "coffee", "카페"},
	"photo":      {"photo", "photo spot", "포토존"},
	"sunset":     {"sunset", "노을"},
	"hiking":     {"hiking", "hike", "등산"},
	"history":    {"history", "historic", "historical", "역사"},
}

// FuzzyMatchKeyword reports whether a place tag matches a keyword.
// The tag matches when it contains the keyword or one of its aliases, ignoring case.
func FuzzyMatchKeyword(tag, keyword string) bool {
	tagLower := strings.ToLower(strings.TrimSpace(tag))
	keywordLower := strings.ToLower(strings.TrimSpace(keyword))
	if tagLower == "" || keywordLower == "" {
		return false
	}

	if tagLower == keywordLower || strings.Contains(tagLower, keywordLower) {
		return true
	}

	for _, alias := range keywordAliases[keywordLower] {
		if strings.Contains(tagLower, alias) {
			return true
		}
	}

	return false
}

// CountKeywordMatches counts how many keywords in the set match at least one tag.
// Each keyword counts once no matter how many tags hit it.
func CountKeywordMatches(tags []string, keywords []string) int {
	if len(tags) == 0 || len(keywords) == 0 {
		return 0
	}

	count := 0
	for _, keyword := range keywords {
		for _, tag := range tags {
			if FuzzyMatchKeyword(tag, keyword) {
				count++
				break
			}
		}
	}
	return count
}
