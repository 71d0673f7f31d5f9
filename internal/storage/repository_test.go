package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testExpense(id, userID string) core.Expense {
	return core.Expense{
		ID:              id,
		UserID:          userID,
		VendorName:      "Big Bazaar",
		TransactionDate: time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
		TotalAmount:     570,
		Category:        "Groceries",
		Type:            core.TypePersonal,
		LineItems: []core.LineItem{
			{Description: "rice", Price: 450, Splits: []core.Split{{Participant: "You", Amount: 450}}},
			{Description: "flour", Price: 120, Splits: []core.Split{{Participant: "You", Amount: 120}}},
		},
		OriginalText: "rice 450, flour 120 from Big Bazaar",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestSaveAndGetExpense(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := testExpense("e1", "u1")
	if err := repo.SaveExpense(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetExpense(ctx, "e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VendorName != want.VendorName || got.TotalAmount != want.TotalAmount {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.LineItems) != 2 || len(got.LineItems[0].Splits) != 1 {
		t.Fatalf("line items did not round-trip: %+v", got.LineItems)
	}
}

func TestGetExpenseNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetExpense(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListExpensesScopedToUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, e := range []core.Expense{
		testExpense("e1", "u1"),
		testExpense("e2", "u1"),
		testExpense("e3", "u2"),
	} {
		if err := repo.SaveExpense(ctx, e); err != nil {
			t.Fatalf("save %s: %v", e.ID, err)
		}
	}

	got, err := repo.ListExpenses(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("list returned %d expenses, want 2", len(got))
	}
	for _, e := range got {
		if e.UserID != "u1" {
			t.Fatalf("expense %s belongs to %s", e.ID, e.UserID)
		}
	}
}

func TestSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveExpense(ctx, testExpense("e1", "u1")); err != nil {
		t.Fatalf("save: %v", err)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "e1" || pending[0].Version != 1 {
		t.Fatalf("pending = %+v, want fresh expense at version 1", pending)
	}

	if err := repo.MarkSynced(ctx, "e1"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending after sync: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("synced expense still pending: %+v", pending)
	}

	// Errored rows come back into the pending set for retry.
	if err := repo.MarkSyncError(ctx, "e1"); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending after error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("errored expense not retried: %+v", pending)
	}
}

func TestInsightLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := core.Insight{
		ID:        "i1",
		UserID:    "u1",
		Query:     "how much did I spend on dining?",
		Content:   "You spent 1200 on dining this month.",
		Tags:      "dining,monthly",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.SaveInsight(ctx, in); err != nil {
		t.Fatalf("save insight: %v", err)
	}

	insights, err := repo.ListInsights(ctx, "u1")
	if err != nil {
		t.Fatalf("list insights: %v", err)
	}
	if len(insights) != 1 || insights[0].Query != in.Query {
		t.Fatalf("insights = %+v", insights)
	}
	if insights[0].Tags != in.Tags {
		t.Errorf("tags = %q, want %q", insights[0].Tags, in.Tags)
	}

	if err := repo.DeleteInsight(ctx, "i1", "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user delete: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteInsight(ctx, "i1", "u1"); err != nil {
		t.Fatalf("delete insight: %v", err)
	}
	if err := repo.DeleteInsight(ctx, "i1", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestBudgetUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetBudget(ctx, "u1", "2024-12"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unset budget, got %v", err)
	}

	if err := repo.SetBudget(ctx, "u1", "2024-12", 15000); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	b, err := repo.GetBudget(ctx, "u1", "2024-12")
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if b.Amount != 15000 {
		t.Fatalf("budget = %v, want 15000", b.Amount)
	}

	if err := repo.SetBudget(ctx, "u1", "2024-12", 18000); err != nil {
		t.Fatalf("update budget: %v", err)
	}
	b, err = repo.GetBudget(ctx, "u1", "2024-12")
	if err != nil {
		t.Fatalf("get updated budget: %v", err)
	}
	if b.Amount != 18000 {
		t.Fatalf("budget = %v, want 18000 after upsert", b.Amount)
	}
}
