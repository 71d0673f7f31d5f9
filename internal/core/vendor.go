package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// vendorMatcher is one extraction strategy: given the source text it either
// yields a candidate vendor phrase or reports no match. Strategies are tried
// in order; the first acceptable candidate wins.
type vendorMatcher func(text string) (string, bool)

// vendorMatchers is the fixed priority list. More specific triggers come
// before the generic single-word ones so that "went to Big Bazaar" is not
// swallowed by the bare "to" of a later pattern.
var vendorMatchers = []vendorMatcher{
	regexMatcher(`(?i)\bwent to\s+(.+?)(?:\s+(?:with|for|and|on|in|yesterday|today)\b|[,.!?;]|$)`),
	regexMatcher(`(?i)\bbought\s+.+?\s+from\s+(.+?)(?:\s+(?:with|for|and|on|in|yesterday|today)\b|[,.!?;]|$)`),
	regexMatcher(`(?i)\bfrom\s+(.+?)(?:\s+(?:with|for|and|on|in|yesterday|today)\b|[,.!?;]|$)`),
	regexMatcher(`(?i)\bat\s+(.+?)(?:\s+(?:with|for|and|on|in|yesterday|today)\b|[,.!?;]|$)`),
}

func regexMatcher(pattern string) vendorMatcher {
	re := regexp.MustCompile(pattern)
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	}
}

// acceptableVendor gates candidate spans: strictly longer than 2 and strictly
// shorter than 50 characters.
func acceptableVendor(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 2 && n < 50
}

// ExtractVendor recovers a human-readable vendor name from the free-form
// source text. When no text pattern matches it falls back to the description
// of the single most expensive line item (first occurrence wins ties),
// provided that description is shorter than 30 characters. The function is
// total: it always returns a non-empty string, DefaultVendor at worst.
func ExtractVendor(sourceText string, items []LineItem) string {
	for _, match := range vendorMatchers {
		if candidate, ok := match(sourceText); ok && acceptableVendor(candidate) {
			return WordCapitalize(candidate)
		}
	}

	if len(items) > 0 {
		best := items[0]
		for _, it := range items[1:] {
			if it.Price > best.Price {
				best = it
			}
		}
		desc := strings.TrimSpace(best.Description)
		if desc != "" && utf8.RuneCountInString(desc) < 30 {
			return WordCapitalize(desc)
		}
	}

	return DefaultVendor
}
