package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/i-dipanshu/project-raseed/internal/core"
	"github.com/i-dipanshu/project-raseed/internal/storage"
)

type fakeGenerator struct {
	queries []string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, query string, _ []core.Expense) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.queries = append(f.queries, query)
	return fmt.Sprintf("answer to %q", query), nil
}

func TestGenerateInsightSavesResult(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{}
	svc := NewInsightService(gen, store, store, testLogger())

	in, err := svc.GenerateInsight(context.Background(), "user-1", "How much did I spend on food?", "food,spending")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if in.ID == "" || in.UserID != "user-1" {
		t.Errorf("insight = %+v", in)
	}
	if in.Tags != "food,spending" {
		t.Errorf("tags = %q", in.Tags)
	}
	if len(gen.queries) != 1 {
		t.Fatalf("generator calls = %v, want 1", gen.queries)
	}
	if _, ok := store.insights[in.ID]; !ok {
		t.Error("insight not persisted")
	}
}

func TestGenerateInsightSplitsCompoundQuery(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{}
	svc := NewInsightService(gen, store, store, testLogger())

	in, err := svc.GenerateInsight(context.Background(), "user-1",
		"What did I spend on travel? Also how much with Priya?", "")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if len(gen.queries) != 2 {
		t.Fatalf("generator calls = %v, want 2", gen.queries)
	}
	if !strings.Contains(in.Content, "\n\n") {
		t.Errorf("content = %q, want both answers joined", in.Content)
	}
}

func TestGenerateInsightEmptyQuery(t *testing.T) {
	store := newFakeStore()
	svc := NewInsightService(&fakeGenerator{}, store, store, testLogger())

	if _, err := svc.GenerateInsight(context.Background(), "user-1", "   ", ""); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestGenerateInsightGeneratorFailure(t *testing.T) {
	store := newFakeStore()
	svc := NewInsightService(&fakeGenerator{err: errors.New("model unavailable")}, store, store, testLogger())

	if _, err := svc.GenerateInsight(context.Background(), "user-1", "anything", ""); err == nil {
		t.Fatal("expected generator error")
	}
	if len(store.insights) != 0 {
		t.Error("failed generation must not be persisted")
	}
}

func TestDeleteInsightScopedToOwner(t *testing.T) {
	store := newFakeStore()
	svc := NewInsightService(&fakeGenerator{}, store, store, testLogger())

	in, err := svc.GenerateInsight(context.Background(), "user-1", "Summarize", "")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}

	if err := svc.DeleteInsight(context.Background(), in.ID, "user-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-user delete = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteInsight(context.Background(), in.ID, "user-1"); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := svc.DeleteInsight(context.Background(), in.ID, "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestSplitCompoundQuery(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"How much on food?", 1},
		{"How much on food? Also what about travel?", 2},
		{"Food totals and also travel totals", 2},
		{"a and also b; also c", 3},
	}
	for _, tc := range cases {
		if got := splitCompoundQuery(tc.query); len(got) != tc.want {
			t.Errorf("splitCompoundQuery(%q) = %v, want %d parts", tc.query, got, tc.want)
		}
	}
}
