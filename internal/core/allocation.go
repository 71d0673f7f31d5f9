package core

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ParticipantTotals accumulates each participant's share across all line
// items, keyed by canonical participant id ("me" aliases to SelfParticipant).
// Participants with no splits anywhere are absent from the result, and a line
// item carrying no splits contributes nothing: there is deliberately no
// implicit equal-split fallback here.
func ParticipantTotals(items []LineItem) map[string]float64 {
	totals := make(map[string]float64)
	for _, it := range items {
		for _, s := range it.Splits {
			totals[CanonicalParticipant(s.Participant)] += s.Amount
		}
	}
	for p, v := range totals {
		totals[p] = roundCurrency(v)
	}
	return totals
}

// ItemShare is one participant's portion of a single line item, used for the
// item-level allocation breakdown shown alongside the totals.
type ItemShare struct {
	Item      string  `json:"item"`
	Amount    float64 `json:"amount"`
	ItemTotal float64 `json:"item_total"`
}

// AllocationBreakdown groups shares by participant, listing exactly which
// items each person pays for and how much. Zero-amount splits are skipped.
func AllocationBreakdown(items []LineItem) map[string][]ItemShare {
	breakdown := make(map[string][]ItemShare)
	for _, it := range items {
		for _, s := range it.Splits {
			if s.Amount <= 0 {
				continue
			}
			p := CanonicalParticipant(s.Participant)
			breakdown[p] = append(breakdown[p], ItemShare{
				Item:      it.Description,
				Amount:    roundCurrency(s.Amount),
				ItemTotal: it.Price,
			})
		}
	}
	return breakdown
}

// Percentage derives a participant's share of the bill as a percentage,
// rounded to one decimal for display. A zero expense total has no defined
// percentage: ErrZeroTotal is returned instead of an infinite or NaN value.
func Percentage(participantTotal, expenseTotal float64) (float64, error) {
	if expenseTotal == 0 {
		return 0, ErrZeroTotal
	}
	return math.Round(participantTotal/expenseTotal*1000) / 10, nil
}

// MemberKey builds the canonical identity of a member set: case-sensitive,
// order-independent. Two expenses belong to the same shared space exactly
// when their member keys are equal.
func MemberKey(members []string) string {
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}

// GroupSharedSpaces derives the shared spaces for an expense collection. Each
// distinct member set (compared order-independently) yields one space, named
// after the first expense that introduced it. The function is pure: it never
// accumulates state across calls, so recomputing from the same collection
// always produces spaces with identical member sets, whatever the input
// order. Ids are fresh per computation.
func GroupSharedSpaces(expenses []Expense) []SharedSpace {
	var spaces []SharedSpace
	seen := make(map[string]int)

	for _, e := range expenses {
		if e.Type != TypeShared || len(e.Members) == 0 {
			continue
		}
		key := MemberKey(e.Members)
		if _, ok := seen[key]; ok {
			continue
		}
		members := make([]string, len(e.Members))
		copy(members, e.Members)
		seen[key] = len(spaces)
		spaces = append(spaces, SharedSpace{
			ID:      uuid.NewString(),
			Name:    e.VendorName + " Group",
			Members: members,
		})
	}

	return spaces
}

// SharedSpaceFor returns the space matching an expense's member set, if any.
func SharedSpaceFor(e Expense, spaces []SharedSpace) (SharedSpace, bool) {
	key := MemberKey(e.Members)
	for _, s := range spaces {
		if MemberKey(s.Members) == key {
			return s, true
		}
	}
	return SharedSpace{}, false
}

func roundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
