package core

import "strings"

// categoryRule pairs a spending category with the keywords that select it.
// Rules are evaluated in order and the first keyword hit wins, so the table
// order is the tie-break when a description mentions several categories.
// Adding a category is a data change, not a control-flow change.
type categoryRule struct {
	Category string
	Keywords []string
}

var categoryRules = []categoryRule{
	{"Dining", []string{"food", "restaurant", "cafe"}},
	{"Groceries", []string{"grocery", "supermarket"}},
	{"Transport", []string{"fuel", "gas", "petrol"}},
	{"Electronics", []string{"electronics", "phone", "laptop"}},
	{"Shopping", []string{"clothes", "shopping"}},
	{"Utilities", []string{"utility", "electricity", "water"}},
}

// Categories lists the known spending categories in rule order, with the
// fallback appended. Used to constrain the upstream model's taxonomy.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+1)
	for _, r := range categoryRules {
		out = append(out, r.Category)
	}
	return append(out, CategoryOther)
}

// Categorize maps a set of line-item descriptions to one semantic spending
// category. All descriptions are folded into a single lower-case search
// string; substring matching keeps the function deterministic for identical
// input regardless of call order or repetition.
func Categorize(items []LineItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(it.Description))
	}
	search := b.String()

	for _, rule := range categoryRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(search, kw) {
				return rule.Category
			}
		}
	}
	return CategoryOther
}
