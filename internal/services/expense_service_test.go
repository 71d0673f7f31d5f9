package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/i-dipanshu/project-raseed/internal/core"
	"github.com/i-dipanshu/project-raseed/internal/log"
	"github.com/i-dipanshu/project-raseed/internal/storage"
)

type fakeStore struct {
	expenses map[string]core.Expense
	insights map[string]core.Insight
	budgets  map[string]float64
	saveErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expenses: make(map[string]core.Expense),
		insights: make(map[string]core.Insight),
		budgets:  make(map[string]float64),
	}
}

func (f *fakeStore) SaveExpense(_ context.Context, e core.Expense) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) GetExpense(_ context.Context, id string) (core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range f.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) SetBudget(_ context.Context, userID, month string, amount float64) error {
	f.budgets[userID+"/"+month] = amount
	return nil
}

func (f *fakeStore) GetBudget(_ context.Context, userID, month string) (core.Budget, error) {
	amount, ok := f.budgets[userID+"/"+month]
	if !ok {
		return core.Budget{}, storage.ErrNotFound
	}
	return core.Budget{UserID: userID, Month: month, Amount: amount}, nil
}

func (f *fakeStore) SaveInsight(_ context.Context, in core.Insight) error {
	f.insights[in.ID] = in
	return nil
}

func (f *fakeStore) ListInsights(_ context.Context, userID string) ([]core.Insight, error) {
	var out []core.Insight
	for _, in := range f.insights {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteInsight(_ context.Context, id, userID string) error {
	in, ok := f.insights[id]
	if !ok || in.UserID != userID {
		return storage.ErrNotFound
	}
	delete(f.insights, id)
	return nil
}

type fakeParser struct {
	raw core.RawParse
	err error
}

func (f *fakeParser) Parse(context.Context, string) (core.RawParse, error) {
	return f.raw, f.err
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) PublishExpenseRecorded(_ context.Context, id string, _ int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError})
}

func sharedParse(total float64) core.RawParse {
	shared := true
	return core.RawParse{
		Participants:      []string{"me", "Priya"},
		CleanParticipants: []string{"Priya"},
		IsShared:          &shared,
		LineItems: []core.RawLineItem{
			{
				Description: "Dinner",
				Amount:      total,
				Splits: []core.Split{
					{Participant: "me", Amount: total / 2},
					{Participant: "Priya", Amount: total / 2},
				},
			},
		},
		TotalAmount: &total,
	}
}

func TestRecordExpenseSharedFlow(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewExpenseService(&fakeParser{raw: sharedParse(1000)}, store, pub, 20000, testLogger())

	result, err := svc.RecordExpense(context.Background(), "user-1", "dinner at Barbeque Nation 1000 split with Priya")
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}

	e := result.Expense
	if e.UserID != "user-1" {
		t.Errorf("user id = %q, want user-1", e.UserID)
	}
	if e.Type != core.TypeShared {
		t.Errorf("type = %q, want shared", e.Type)
	}
	if len(e.Members) != 2 || e.Members[0] != core.SelfParticipant || e.Members[1] != "Priya" {
		t.Errorf("members = %v", e.Members)
	}
	if e.SharedDetails == nil || e.SharedDetails.PaidBy != core.SelfParticipant {
		t.Errorf("shared details = %+v", e.SharedDetails)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", result.Warnings)
	}
	if len(pub.published) != 1 || pub.published[0] != e.ID {
		t.Errorf("published = %v, want [%s]", pub.published, e.ID)
	}
	if _, ok := store.expenses[e.ID]; !ok {
		t.Error("expense not persisted")
	}
}

func TestRecordExpenseMalformedParse(t *testing.T) {
	total := 100.0
	store := newFakeStore()
	svc := NewExpenseService(&fakeParser{raw: core.RawParse{TotalAmount: &total}}, store, nil, 0, testLogger())

	_, err := svc.RecordExpense(context.Background(), "user-1", "something")
	var parseErr *core.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *core.ParseError", err)
	}
	if len(store.expenses) != 0 {
		t.Error("malformed parse must not be persisted")
	}
}

func TestRecordExpensePublishFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(&fakeParser{raw: sharedParse(500)}, store, pub, 0, testLogger())

	result, err := svc.RecordExpense(context.Background(), "user-1", "lunch 500 split with Priya")
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	if _, ok := store.expenses[result.Expense.ID]; !ok {
		t.Error("expense should be stored despite publish failure")
	}
}

func TestRecordExpenseReportsTotalMismatch(t *testing.T) {
	total := 999.0
	raw := sharedParse(1000)
	raw.TotalAmount = &total
	svc := NewExpenseService(&fakeParser{raw: raw}, newFakeStore(), nil, 0, testLogger())

	result, err := svc.RecordExpense(context.Background(), "user-1", "dinner")
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one expense-scope mismatch", result.Warnings)
	}
	if result.Warnings[0].Scope != "expense" {
		t.Errorf("scope = %q", result.Warnings[0].Scope)
	}
	// The declared total stays authoritative.
	if result.Expense.TotalAmount != 999 {
		t.Errorf("total = %v, want declared 999", result.Expense.TotalAmount)
	}
}

func TestAllocationsScopedToOwner(t *testing.T) {
	store := newFakeStore()
	svc := NewExpenseService(&fakeParser{raw: sharedParse(1000)}, store, nil, 0, testLogger())

	result, err := svc.RecordExpense(context.Background(), "user-1", "dinner 1000 split with Priya")
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}

	report, err := svc.Allocations(context.Background(), "user-1", result.Expense.ID)
	if err != nil {
		t.Fatalf("Allocations: %v", err)
	}
	if report.Totals[core.SelfParticipant] != 500 || report.Totals["Priya"] != 500 {
		t.Errorf("totals = %v", report.Totals)
	}
	if report.Percentages[core.SelfParticipant] != 50.0 {
		t.Errorf("percentages = %v", report.Percentages)
	}
	if report.SharedSpace == nil || report.SharedSpace.Name != result.Expense.VendorName+" Group" {
		t.Errorf("shared space = %+v", report.SharedSpace)
	}

	if _, err := svc.Allocations(context.Background(), "user-2", result.Expense.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Allocations(context.Background(), "user-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestSharedSpacesOnePerMemberSet(t *testing.T) {
	store := newFakeStore()
	svc := NewExpenseService(&fakeParser{raw: sharedParse(1000)}, store, nil, 0, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordExpense(context.Background(), "user-1", "dinner 1000 split with Priya"); err != nil {
			t.Fatalf("RecordExpense: %v", err)
		}
	}

	spaces, err := svc.SharedSpaces(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("SharedSpaces: %v", err)
	}
	if len(spaces) != 1 {
		t.Fatalf("spaces = %d, want 1 for identical member sets", len(spaces))
	}
	if len(spaces[0].Members) != 2 {
		t.Errorf("members = %v", spaces[0].Members)
	}
}

func TestDashboardStatsCountsOnlyUserShare(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	svc := NewExpenseService(nil, store, nil, 20000, testLogger())
	svc.now = func() time.Time { return now }

	put := func(id string, date time.Time, category string, splits []core.Split, total float64) {
		store.expenses[id] = core.Expense{
			ID:              id,
			UserID:          "user-1",
			TransactionDate: date,
			TotalAmount:     total,
			Category:        category,
			Type:            core.TypeShared,
			LineItems:       []core.LineItem{{Description: "x", Price: total, Splits: splits}},
		}
	}

	put("e1", now, "Food & Dining", []core.Split{
		{Participant: core.SelfParticipant, Amount: 600},
		{Participant: "Priya", Amount: 400},
	}, 1000)
	put("e2", now.AddDate(0, -1, 0), "Travel", []core.Split{
		{Participant: core.SelfParticipant, Amount: 300},
	}, 300)

	stats, err := svc.DashboardStats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.ThisMonthTotal != 600 {
		t.Errorf("this month = %v, want 600 (own share only)", stats.ThisMonthTotal)
	}
	if stats.LastMonthTotal != 300 {
		t.Errorf("last month = %v, want 300", stats.LastMonthTotal)
	}
	if stats.ExpenseCount != 1 {
		t.Errorf("count = %d, want 1", stats.ExpenseCount)
	}
	if stats.ByCategory["Food & Dining"] != 600 {
		t.Errorf("by category = %v", stats.ByCategory)
	}
	if stats.Budget != 20000 || stats.BudgetRemaining != 19400 {
		t.Errorf("budget = %v remaining = %v", stats.Budget, stats.BudgetRemaining)
	}
}

func TestBudgetDefaultAndOverride(t *testing.T) {
	store := newFakeStore()
	svc := NewExpenseService(nil, store, nil, 15000, testLogger())

	b, err := svc.Budget(context.Background(), "user-1", "2026-08")
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if b.Amount != 15000 {
		t.Errorf("default budget = %v, want 15000", b.Amount)
	}

	if err := svc.SetBudget(context.Background(), "user-1", "2026-08", 8000); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	b, err = svc.Budget(context.Background(), "user-1", "2026-08")
	if err != nil {
		t.Fatalf("Budget: %v", err)
	}
	if b.Amount != 8000 {
		t.Errorf("budget = %v, want 8000", b.Amount)
	}

	if err := svc.SetBudget(context.Background(), "user-1", "August", 100); err == nil {
		t.Error("expected error for malformed month")
	}
	if err := svc.SetBudget(context.Background(), "user-1", "2026-08", -1); err == nil || !strings.Contains(err.Error(), "negative") {
		t.Errorf("err = %v, want negative amount rejection", err)
	}
}
