// Package insight answers natural-language questions about a user's spending
// history. The Gemini generator handles free-form questions; the summarizer is
// the model-free fallback and powers deployments without an API key.
package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

// Generator produces a textual answer to a spending question.
type Generator interface {
	Generate(ctx context.Context, query string, expenses []core.Expense) (string, error)
}

// Summarizer is a deterministic generator built on simple aggregation. It
// ignores the nuances of the question and reports overall and per-category
// totals of the user's own share.
type Summarizer struct{}

func NewSummarizer() *Summarizer { return &Summarizer{} }

// Generate implements Generator.
func (s *Summarizer) Generate(_ context.Context, _ string, expenses []core.Expense) (string, error) {
	if len(expenses) == 0 {
		return "No expenses recorded yet.", nil
	}

	var total float64
	byCategory := make(map[string]float64)
	for _, e := range expenses {
		share := userShare(e)
		total += share
		byCategory[e.Category] += share
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if byCategory[categories[i]] != byCategory[categories[j]] {
			return byCategory[categories[i]] > byCategory[categories[j]]
		}
		return categories[i] < categories[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d recorded expenses with a personal share of %.2f.", len(expenses), total)
	if len(categories) > 0 {
		fmt.Fprintf(&b, " Top category: %s (%.2f).", categories[0], byCategory[categories[0]])
	}
	if len(categories) > 1 {
		b.WriteString(" By category: ")
		parts := make([]string, len(categories))
		for i, c := range categories {
			parts[i] = fmt.Sprintf("%s %.2f", c, byCategory[c])
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(".")
	}
	return b.String(), nil
}

// userShare is the portion of an expense attributed to the submitting user.
func userShare(e core.Expense) float64 {
	totals := core.ParticipantTotals(e.LineItems)
	return totals[core.SelfParticipant]
}
