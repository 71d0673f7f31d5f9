package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func validRaw() RawParse {
	return RawParse{
		Participants: []string{"me"},
		LineItems: []RawLineItem{
			{Description: "lunch thali", Amount: 180, Splits: []Split{{Participant: "me", Amount: 180}}},
		},
		TotalAmount: f64(180),
	}
}

func TestCanonicalizeRejectsMalformedInput(t *testing.T) {
	now := time.Now()

	missingItems := validRaw()
	missingItems.LineItems = nil
	if _, err := Canonicalize(missingItems, "lunch", now); err == nil {
		t.Fatal("expected error for missing line_items")
	} else {
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected *ParseError, got %T", err)
		}
		if !errors.Is(err, ErrMissingLineItems) {
			t.Fatalf("expected ErrMissingLineItems, got %v", err)
		}
	}

	for _, total := range []*float64{nil, f64(math.NaN()), f64(math.Inf(1))} {
		bad := validRaw()
		bad.TotalAmount = total
		if _, err := Canonicalize(bad, "lunch", now); !errors.Is(err, ErrBadTotal) {
			t.Fatalf("total=%v: expected ErrBadTotal, got %v", total, err)
		}
	}
}

func TestCanonicalizeAlwaysSetsType(t *testing.T) {
	raws := []RawParse{
		validRaw(),
		{LineItems: []RawLineItem{}, TotalAmount: f64(0)},
		{Participants: []string{"me", "Priya"}, LineItems: []RawLineItem{{Description: "x", Amount: 1}}, TotalAmount: f64(1)},
	}
	for i, raw := range raws {
		e, err := Canonicalize(raw, "whatever", time.Now())
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if e.Type != TypePersonal && e.Type != TypeShared {
			t.Fatalf("case %d: type %q not set", i, e.Type)
		}
		if e.ID == "" {
			t.Fatalf("case %d: missing id", i)
		}
	}
}

func TestCanonicalizeSharingDetection(t *testing.T) {
	raw := validRaw()
	raw.CleanParticipants = []string{"Rohit", "Priya"}

	e, err := Canonicalize(raw, "dinner with Rohit and Priya", time.Now())
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if e.Type != TypeShared {
		t.Fatalf("type = %q, want shared", e.Type)
	}
	want := []string{"You", "Rohit", "Priya"}
	if len(e.Members) != len(want) {
		t.Fatalf("members = %v, want %v", e.Members, want)
	}
	for i, m := range want {
		if e.Members[i] != m {
			t.Fatalf("members = %v, want %v", e.Members, want)
		}
	}
	if e.SharedDetails == nil || e.SharedDetails.PaidBy != SelfParticipant {
		t.Fatalf("shared details = %+v, want paid_by You", e.SharedDetails)
	}
}

func TestCanonicalizeSelfTokensFiltered(t *testing.T) {
	raw := validRaw()
	raw.Participants = []string{"me", "Myself", "I", "Ankit"}

	e, err := Canonicalize(raw, "split with Ankit", time.Now())
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if e.Type != TypeShared {
		t.Fatalf("type = %q, want shared", e.Type)
	}
	count := 0
	for _, m := range e.Members {
		if m == SelfParticipant {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("members %v: submitting user appears %d times, want exactly once", e.Members, count)
	}
}

func TestCanonicalizeExplicitFlagWins(t *testing.T) {
	shared := false
	raw := validRaw()
	raw.CleanParticipants = []string{"Priya"}
	raw.IsShared = &shared

	e, err := Canonicalize(raw, "treated Priya to coffee", time.Now())
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if e.Type != TypePersonal {
		t.Fatalf("type = %q, want personal despite participants", e.Type)
	}
	if e.SharedDetails != nil || e.Members != nil {
		t.Fatal("personal expense must leave sharing fields unset")
	}
}

func TestCanonicalizeDates(t *testing.T) {
	now := time.Date(2024, 12, 20, 15, 4, 5, 0, time.UTC)

	raw := validRaw()
	e, err := Canonicalize(raw, "lunch", now)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	wantDate := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	if !e.TransactionDate.Equal(wantDate) {
		t.Fatalf("transaction date = %v, want %v", e.TransactionDate, wantDate)
	}

	raw.ExpenseDate = "2024-12-15"
	e, err = Canonicalize(raw, "lunch", now)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if e.TransactionDate.Format("2006-01-02") != "2024-12-15" {
		t.Fatalf("explicit date = %v, want 2024-12-15", e.TransactionDate)
	}

	// An early-morning timestamp east of UTC must not slide back a day.
	raw.ExpenseDate = "2024-12-15T01:00:00+05:30"
	e, err = Canonicalize(raw, "lunch", now)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if e.TransactionDate.Format("2006-01-02") != "2024-12-15" {
		t.Fatalf("offset date = %v, want 2024-12-15", e.TransactionDate)
	}
}

func TestCanonicalizeKeepsDeclaredTotal(t *testing.T) {
	raw := validRaw()
	raw.TotalAmount = f64(999) // disagrees with the 180 line item

	e, err := Canonicalize(raw, "lunch", time.Now())
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if e.TotalAmount != 999 {
		t.Fatalf("total = %v, want the declared 999 preserved", e.TotalAmount)
	}
	mismatches := CheckTotals(e)
	if len(mismatches) != 1 || mismatches[0].Scope != "expense" {
		t.Fatalf("mismatches = %v, want one expense-scope report", mismatches)
	}
}

func TestCheckTotals(t *testing.T) {
	good := Expense{
		TotalAmount: 1000,
		LineItems: []LineItem{
			{Description: "dinner", Price: 600, Splits: []Split{{Participant: "You", Amount: 350}, {Participant: "Priya", Amount: 250}}},
			{Description: "dessert", Price: 400},
		},
	}
	if got := CheckTotals(good); got != nil {
		t.Fatalf("well-formed expense: unexpected mismatches %v", got)
	}

	bad := good
	bad.LineItems = []LineItem{
		{Description: "dinner", Price: 600, Splits: []Split{{Participant: "You", Amount: 500}}},
		{Description: "dessert", Price: 400},
	}
	got := CheckTotals(bad)
	if len(got) != 1 {
		t.Fatalf("mismatches = %v, want one", got)
	}
	if got[0].Scope != "line_item" || got[0].Item != "dinner" {
		t.Fatalf("mismatch = %+v, want line_item dinner", got[0])
	}
}

func TestCheckTotalsWithinTolerance(t *testing.T) {
	e := Expense{
		TotalAmount: 100.00,
		LineItems:   []LineItem{{Description: "x", Price: 99.995}},
	}
	if got := CheckTotals(e); got != nil {
		t.Fatalf("drift within tolerance reported: %v", got)
	}
}
