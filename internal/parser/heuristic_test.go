package parser

import (
	"context"
	"testing"
)

func TestHeuristicParseSingleAmount(t *testing.T) {
	raw, err := NewHeuristic().Parse(context.Background(), "dinner at a restaurant for ₹850")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if raw.TotalAmount == nil || *raw.TotalAmount != 850 {
		t.Fatalf("total = %v, want 850", raw.TotalAmount)
	}
	if len(raw.LineItems) != 1 {
		t.Fatalf("line items = %v, want one", raw.LineItems)
	}
	if raw.LineItems[0].Category != "Dining" {
		t.Fatalf("category = %q, want Dining", raw.LineItems[0].Category)
	}
	if len(raw.LineItems[0].Splits) != 1 || raw.LineItems[0].Splits[0].Amount != 850 {
		t.Fatalf("splits = %v, want full self split", raw.LineItems[0].Splits)
	}
}

func TestHeuristicParseMultipleAmounts(t *testing.T) {
	raw, err := NewHeuristic().Parse(context.Background(), "grocery run: rice ₹450, flour ₹120")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(raw.LineItems) != 2 {
		t.Fatalf("line items = %v, want two", raw.LineItems)
	}
	if raw.TotalAmount == nil || *raw.TotalAmount != 570 {
		t.Fatalf("total = %v, want 570", raw.TotalAmount)
	}
}

func TestHeuristicParseSharedSplitsEqually(t *testing.T) {
	raw, err := NewHeuristic().Parse(context.Background(), "we split the 300 cab with Rohit")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if raw.IsShared == nil || !*raw.IsShared {
		t.Fatal("expected shared expense")
	}
	splits := raw.LineItems[0].Splits
	if len(splits) != 2 {
		t.Fatalf("splits = %v, want two", splits)
	}
	if splits[0].Amount != 150 || splits[1].Amount != 150 {
		t.Fatalf("splits = %v, want 150 each", splits)
	}
}

func TestExtractAmounts(t *testing.T) {
	cases := []struct {
		text string
		want []float64
	}{
		{"2 coffees for 180", []float64{180}},
		{"rs. 1,200 hotel", []float64{1200}},
		{"$5 tip", []float64{5}},
		{"nothing here", nil},
	}
	for _, tc := range cases {
		got := extractAmounts(tc.text)
		if len(got) != len(tc.want) {
			t.Fatalf("extractAmounts(%q) = %v, want %v", tc.text, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("extractAmounts(%q) = %v, want %v", tc.text, got, tc.want)
			}
		}
	}
}
