package core

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Canonicalize assembles a raw parse result into the canonical expense
// record. It decides sharing status, recovers the vendor name, assigns a
// category, and finalizes the sharing fields. now supplies the creation
// timestamp; the transaction date falls back to its date portion when the
// upstream parse carries no explicit date.
//
// It fails with a *ParseError when line_items is absent or total_amount is
// missing or not finite. It never fixes a total that disagrees with the sum
// of its parts: the declared upstream total stays authoritative (callers
// report mismatches via CheckTotals).
func Canonicalize(raw RawParse, sourceText string, now time.Time) (Expense, error) {
	if raw.LineItems == nil {
		return Expense{}, &ParseError{Field: "line_items", Err: ErrMissingLineItems}
	}
	if raw.TotalAmount == nil || math.IsNaN(*raw.TotalAmount) || math.IsInf(*raw.TotalAmount, 0) {
		return Expense{}, &ParseError{Field: "total_amount", Err: ErrBadTotal}
	}

	cleanParticipants := cleanParticipantList(raw)
	isShared := sharedStatus(raw, cleanParticipants)

	items := make([]LineItem, len(raw.LineItems))
	for i, ri := range raw.LineItems {
		splits := make([]Split, len(ri.Splits))
		for j, s := range ri.Splits {
			splits[j] = Split{Participant: CanonicalParticipant(s.Participant), Amount: s.Amount}
		}
		items[i] = LineItem{
			Description:    ri.Description,
			Price:          ri.Amount,
			Category:       ri.Category,
			AllocationText: ri.AllocationText,
			Splits:         splits,
		}
	}

	e := Expense{
		ID:              uuid.NewString(),
		VendorName:      ExtractVendor(sourceText, items),
		TransactionDate: transactionDate(raw.ExpenseDate, now),
		TotalAmount:     *raw.TotalAmount,
		Category:        Categorize(items),
		Type:            TypePersonal,
		LineItems:       items,
		OriginalText:    sourceText,
		CreatedAt:       now,
	}

	if isShared {
		members := make([]string, 0, len(cleanParticipants)+1)
		members = append(members, SelfParticipant)
		for _, p := range cleanParticipants {
			members = append(members, CanonicalParticipant(p))
		}
		e.Type = TypeShared
		e.Members = members
		// The upstream parse has no payer field: the submitting user is
		// always assumed to have paid.
		e.SharedDetails = &SharedDetails{Members: members, PaidBy: SelfParticipant}
	}

	return e, nil
}

// cleanParticipantList prefers the upstream clean_participants when supplied,
// otherwise filters self-referential tokens out of the raw participant list.
func cleanParticipantList(raw RawParse) []string {
	if raw.CleanParticipants != nil {
		return raw.CleanParticipants
	}
	var out []string
	for _, p := range raw.Participants {
		if !isSelfToken(p) {
			out = append(out, p)
		}
	}
	return out
}

// sharedStatus resolves the personal/shared decision: an explicit is_shared
// wins, then an explicit expense_type, then the presence of participants
// beyond the submitting user.
func sharedStatus(raw RawParse, cleanParticipants []string) bool {
	if raw.IsShared != nil {
		return *raw.IsShared
	}
	if raw.ExpenseType != "" {
		return raw.ExpenseType == TypeShared
	}
	return len(cleanParticipants) > 0
}

func transactionDate(upstream string, now time.Time) time.Time {
	if upstream != "" {
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if t, err := time.Parse(layout, upstream); err == nil {
				// Keep the calendar day as written, whatever the offset.
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			}
		}
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// TotalMismatch reports one violated total invariant. Mismatches are
// tolerated: the declared amounts are displayed as-is, never corrected.
type TotalMismatch struct {
	Scope    string  `json:"scope"` // "expense" or "line_item"
	Item     string  `json:"item,omitempty"`
	Declared float64 `json:"declared"`
	Computed float64 `json:"computed"`
}

func (m TotalMismatch) String() string {
	if m.Item != "" {
		return fmt.Sprintf("%s %q: declared %.2f, parts sum to %.2f", m.Scope, m.Item, m.Declared, m.Computed)
	}
	return fmt.Sprintf("%s: declared %.2f, parts sum to %.2f", m.Scope, m.Declared, m.Computed)
}

// CheckTotals verifies the two sum invariants within Tolerance: the expense
// total against its line-item prices, and each split-carrying line item
// against its split amounts. Line items without splits are not checked.
func CheckTotals(e Expense) []TotalMismatch {
	var mismatches []TotalMismatch

	var itemSum float64
	for _, it := range e.LineItems {
		itemSum += it.Price

		if len(it.Splits) == 0 {
			continue
		}
		var splitSum float64
		for _, s := range it.Splits {
			splitSum += s.Amount
		}
		if math.Abs(splitSum-it.Price) > Tolerance {
			mismatches = append(mismatches, TotalMismatch{
				Scope:    "line_item",
				Item:     it.Description,
				Declared: it.Price,
				Computed: splitSum,
			})
		}
	}

	if math.Abs(itemSum-e.TotalAmount) > Tolerance {
		mismatches = append(mismatches, TotalMismatch{
			Scope:    "expense",
			Declared: e.TotalAmount,
			Computed: itemSum,
		})
	}

	return mismatches
}
