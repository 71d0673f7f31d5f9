package insight

import (
	"context"
	"strings"
	"testing"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

func TestSummarizerNoExpenses(t *testing.T) {
	s := NewSummarizer()
	got, err := s.Generate(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "No expenses recorded yet." {
		t.Errorf("got %q", got)
	}
}

func TestSummarizerCountsOnlyUserShare(t *testing.T) {
	expenses := []core.Expense{
		{
			Category:    "Food & Dining",
			TotalAmount: 1000,
			LineItems: []core.LineItem{{
				Description: "Dinner",
				Price:       1000,
				Splits: []core.Split{
					{Participant: core.SelfParticipant, Amount: 600},
					{Participant: "Priya", Amount: 400},
				},
			}},
		},
		{
			Category:    "Travel",
			TotalAmount: 300,
			LineItems: []core.LineItem{{
				Description: "Cab",
				Price:       300,
				Splits:      []core.Split{{Participant: "me", Amount: 300}},
			}},
		},
	}

	s := NewSummarizer()
	got, err := s.Generate(context.Background(), "how much did I spend?", expenses)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(got, "personal share of 900.00") {
		t.Errorf("summary = %q, want personal share 900.00", got)
	}
	if !strings.Contains(got, "Top category: Food & Dining (600.00)") {
		t.Errorf("summary = %q, want top category Food & Dining", got)
	}
	if !strings.Contains(got, "Travel 300.00") {
		t.Errorf("summary = %q, want Travel in breakdown", got)
	}
}
