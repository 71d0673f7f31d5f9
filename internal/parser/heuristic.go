package parser

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

// Heuristic is a model-free parser for environments without a Gemini key.
// It recovers amounts with a currency-aware regex, classifies sharing via the
// same keyword rules the Gemini pipeline falls back to, and emits one line
// item per amount found.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

var amountPattern = regexp.MustCompile(`(?i)(?:₹|rs\.?\s*|inr\s*|\$|€|£)?\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)\b`)

// Parse implements Parser.
func (h *Heuristic) Parse(_ context.Context, text string) (core.RawParse, error) {
	plan := heuristicSplitPlan(text)

	amounts := extractAmounts(text)
	var total float64
	for _, a := range amounts {
		total += a
	}
	total = round2(total)

	desc := strings.TrimSpace(text)
	if len(desc) > 100 {
		desc = desc[:100] + "..."
	}

	var lineItems []core.RawLineItem
	if len(amounts) <= 1 {
		var amount float64
		if len(amounts) == 1 {
			amount = amounts[0]
		}
		lineItems = []core.RawLineItem{{
			Description:    desc,
			Amount:         amount,
			Category:       core.Categorize([]core.LineItem{{Description: text}}),
			AllocationText: plan.Explanation,
			Splits:         plan.apply(amount),
		}}
	} else {
		for i, amount := range amounts {
			lineItems = append(lineItems, core.RawLineItem{
				Description:    desc + " (item " + strconv.Itoa(i+1) + ")",
				Amount:         amount,
				Category:       core.Categorize([]core.LineItem{{Description: text}}),
				AllocationText: plan.Explanation,
				Splits:         plan.apply(amount),
			})
		}
	}

	shared := plan.IsShared
	return core.RawParse{
		Participants:      plan.Participants,
		CleanParticipants: plan.CleanParticipants,
		IsShared:          &shared,
		ExpenseType:       plan.ExpenseType,
		LineItems:         lineItems,
		TotalAmount:       &total,
	}, nil
}

// extractAmounts pulls monetary values out of the text. Small bare integers
// are skipped unless a currency marker precedes them, so quantities like
// "2 coffees" do not become prices.
func extractAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		hasMarker := strings.TrimSpace(strings.TrimSuffix(m[0], m[1])) != ""
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if !hasMarker && v < 10 && !strings.Contains(raw, ".") {
			continue
		}
		amounts = append(amounts, v)
	}
	return amounts
}
