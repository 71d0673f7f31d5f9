package parser

import (
	"math"
	"strings"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

// splitPlan describes how an expense is divided among participants. It is the
// JSON shape the model returns from the split-analysis stage and also what
// the keyword fallback synthesizes.
type splitPlan struct {
	Participants      []string           `json:"participants"`
	CleanParticipants []string           `json:"clean_participants"`
	IsShared          bool               `json:"is_shared"`
	ExpenseType       string             `json:"expense_type"`
	Method            string             `json:"splitting_method"`
	Ratio             map[string]float64 `json:"split_ratio"`
	Explanation       string             `json:"splitting_explanation"`
}

func personalPlan(explanation string) splitPlan {
	return splitPlan{
		Participants: []string{"me"},
		IsShared:     false,
		ExpenseType:  core.TypePersonal,
		Method:       "personal",
		Ratio:        map[string]float64{"me": 1.0},
		Explanation:  explanation,
	}
}

// normalize repairs a model-produced plan so downstream arithmetic can trust
// it: participants never empty, every participant carries a ratio, ratios sum
// to one, and a non-shared plan collapses to the full-amount self split.
func (p splitPlan) normalize() splitPlan {
	if len(p.Participants) == 0 {
		p.Participants = []string{"me"}
	}

	if !p.IsShared {
		p.ExpenseType = core.TypePersonal
		p.Method = "personal"
		p.Ratio = map[string]float64{"me": 1.0}
		p.Participants = []string{"me"}
		p.CleanParticipants = nil
		return p
	}

	p.ExpenseType = core.TypeShared

	if p.Method == "equal_split" || len(p.Ratio) == 0 {
		equal := 1.0 / float64(len(p.Participants))
		p.Ratio = make(map[string]float64, len(p.Participants))
		for _, part := range p.Participants {
			p.Ratio[part] = equal
		}
		p.Method = "equal_split"
	}

	for _, part := range p.Participants {
		if _, ok := p.Ratio[part]; !ok {
			p.Ratio[part] = 1.0 / float64(len(p.Participants))
		}
	}

	var sum float64
	for _, r := range p.Ratio {
		sum += r
	}
	if sum > 0 && math.Abs(sum-1.0) > 0.01 {
		for part := range p.Ratio {
			p.Ratio[part] /= sum
		}
	}

	return p
}

// apply turns the plan into concrete splits for one line item amount. Each
// share is rounded to the cent; any rounding drift beyond a cent is folded
// into the first split so the splits always sum to the item amount.
func (p splitPlan) apply(amount float64) []core.Split {
	var splits []core.Split
	for _, part := range p.Participants {
		ratio := p.Ratio[part]
		if ratio <= 0 {
			continue
		}
		splits = append(splits, core.Split{
			Participant: part,
			Amount:      round2(amount * ratio),
		})
	}

	var total float64
	for _, s := range splits {
		total += s.Amount
	}
	if len(splits) > 0 && math.Abs(total-amount) > 0.01 {
		splits[0].Amount = round2(splits[0].Amount + (amount - total))
	}

	return splits
}

// Phrases like "lunch for Priya" mean paying on someone's behalf, which stays
// a personal expense. "split with Priya" means dividing the cost.
var (
	personalIndicators = []string{"for ", " for", "bought for", "treating", "paid for", "lunch for", "dinner for", "coffee for"}
	sharedIndicators   = []string{"split with", "divide with", "owes me", "each pay", "we split", "share with", "between us"}
)

// heuristicSplitPlan classifies an expense without the model, from wording
// alone. Personal wins over shared when both pattern families match, and the
// default is personal.
func heuristicSplitPlan(text string) splitPlan {
	lower := strings.ToLower(text)

	for _, ind := range personalIndicators {
		if strings.Contains(lower, ind) {
			return personalPlan("Paying for others: personal expense")
		}
	}

	for _, ind := range sharedIndicators {
		if strings.Contains(lower, ind) {
			return splitPlan{
				Participants:      []string{"me", "other"},
				CleanParticipants: []string{"other"},
				IsShared:          true,
				ExpenseType:       core.TypeShared,
				Method:            "equal_split",
				Ratio:             map[string]float64{"me": 0.5, "other": 0.5},
				Explanation:       "Cost sharing pattern detected",
			}
		}
	}

	return personalPlan("No sharing pattern detected")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
