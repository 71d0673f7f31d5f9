package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/i-dipanshu/project-raseed/internal/core"
	"github.com/i-dipanshu/project-raseed/internal/log"
	"github.com/i-dipanshu/project-raseed/internal/parser"
	"github.com/i-dipanshu/project-raseed/internal/storage"
)

// ErrNotFound is returned for missing records and records owned by someone
// else; the two cases are indistinguishable on purpose.
var ErrNotFound = storage.ErrNotFound

// RecordResult is the outcome of recording one expense. Warnings carry total
// mismatches the canonicalizer detected; the declared amounts are stored
// untouched either way.
type RecordResult struct {
	Expense  core.Expense
	Warnings []core.TotalMismatch
}

// AllocationReport breaks an expense down per participant. Percentages carries
// "not_applicable" instead of numbers when the expense total is zero.
type AllocationReport struct {
	ExpenseID   string                      `json:"expense_id"`
	TotalAmount float64                     `json:"total_amount"`
	Totals      map[string]float64          `json:"totals"`
	Percentages map[string]float64          `json:"percentages,omitempty"`
	PctStatus   string                      `json:"percentages_status,omitempty"`
	Breakdown   map[string][]core.ItemShare `json:"breakdown"`
	SharedSpace *core.SharedSpace           `json:"shared_space,omitempty"`
}

// DashboardStats summarizes the user's own share of spending for the
// dashboard. Shared expenses count only the user's portion.
type DashboardStats struct {
	Month           string             `json:"month"`
	ThisMonthTotal  float64            `json:"this_month_total"`
	LastMonthTotal  float64            `json:"last_month_total"`
	ExpenseCount    int                `json:"expense_count"`
	PersonalCount   int                `json:"personal_count"`
	SharedCount     int                `json:"shared_count"`
	ByCategory      map[string]float64 `json:"by_category"`
	Budget          float64            `json:"budget"`
	BudgetRemaining float64            `json:"budget_remaining"`
}

// ExpenseService orchestrates the parse, canonicalize, store, publish flow
// and the read-side queries built on top of the stored expenses.
type ExpenseService struct {
	parser        parser.Parser
	store         ExpenseStore
	events        EventPublisher
	logger        *log.Logger
	defaultBudget float64
	now           func() time.Time
}

func NewExpenseService(p parser.Parser, store ExpenseStore, events EventPublisher, defaultBudget float64, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		parser:        p,
		store:         store,
		events:        events,
		logger:        logger.WithComponent(log.ComponentExpense),
		defaultBudget: defaultBudget,
		now:           time.Now,
	}
}

// RecordExpense parses a free-form description, canonicalizes it, stores the
// result, and notifies the ledger worker. A malformed parse aborts before
// anything is stored; a failed publish does not fail the request since the
// worker's periodic sweep covers it.
func (s *ExpenseService) RecordExpense(ctx context.Context, userID, text string) (RecordResult, error) {
	raw, err := s.parser.Parse(ctx, text)
	if err != nil {
		return RecordResult{}, fmt.Errorf("parse expense: %w", err)
	}

	expense, err := core.Canonicalize(raw, text, s.now())
	if err != nil {
		return RecordResult{}, err
	}
	expense.UserID = userID
	expense.OriginalText = text
	expense.CreatedAt = s.now().UTC()

	warnings := core.CheckTotals(expense)
	for _, w := range warnings {
		s.logger.WarnContext(ctx, "Declared total disagrees with parts",
			log.FieldExpenseID, expense.ID,
			"scope", w.Scope,
			"item", w.Item,
			"declared", w.Declared,
			"computed", w.Computed)
	}

	if err := s.store.SaveExpense(ctx, expense); err != nil {
		return RecordResult{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishRecorded(ctx, expense.ID)

	s.logger.InfoContext(ctx, "Expense recorded",
		log.FieldExpenseID, expense.ID,
		log.FieldUserID, userID,
		log.FieldVendor, expense.VendorName,
		log.FieldCategory, expense.Category,
		log.FieldExpenseType, expense.Type,
		log.FieldTotalAmount, expense.TotalAmount)

	return RecordResult{Expense: expense, Warnings: warnings}, nil
}

func (s *ExpenseService) publishRecorded(ctx context.Context, id string) {
	if s.events == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, relying on sweep")
		return
	}
	if err := s.events.PublishExpenseRecorded(ctx, id, 1); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense recorded message",
			log.FieldExpenseID, id, log.FieldError, err.Error())
	}
}

// ListExpenses returns the user's expenses, newest first, with shared space
// ids assigned from the current grouping.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}

	spaces := core.GroupSharedSpaces(expenses)
	for i := range expenses {
		if expenses[i].Type != core.TypeShared {
			continue
		}
		if space, ok := core.SharedSpaceFor(expenses[i], spaces); ok {
			expenses[i].SharedSpaceID = space.ID
		}
	}
	return expenses, nil
}

// Allocations reports per-participant totals, percentages, and the item
// breakdown for one expense. Percentages are omitted for a zero total.
func (s *ExpenseService) Allocations(ctx context.Context, userID, expenseID string) (AllocationReport, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return AllocationReport{}, err
	}
	if expense.UserID != userID {
		return AllocationReport{}, ErrNotFound
	}

	totals := core.ParticipantTotals(expense.LineItems)
	report := AllocationReport{
		ExpenseID:   expense.ID,
		TotalAmount: expense.TotalAmount,
		Totals:      totals,
		Breakdown:   core.AllocationBreakdown(expense.LineItems),
	}

	if expense.TotalAmount == 0 {
		report.PctStatus = "not_applicable"
	} else {
		report.Percentages = make(map[string]float64, len(totals))
		for participant, total := range totals {
			pct, err := core.Percentage(total, expense.TotalAmount)
			if err != nil {
				continue
			}
			report.Percentages[participant] = pct
		}
	}

	if expense.Type == core.TypeShared {
		all, err := s.store.ListExpenses(ctx, userID)
		if err != nil {
			return AllocationReport{}, err
		}
		spaces := core.GroupSharedSpaces(all)
		if space, ok := core.SharedSpaceFor(expense, spaces); ok {
			report.SharedSpace = &space
		}
	}

	return report, nil
}

// SharedSpaces derives the user's shared spaces from their expense history.
func (s *ExpenseService) SharedSpaces(ctx context.Context, userID string) ([]core.SharedSpace, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.GroupSharedSpaces(expenses), nil
}

// DashboardStats aggregates the user's own share for the current and
// previous month and compares against the monthly budget.
func (s *ExpenseService) DashboardStats(ctx context.Context, userID string) (DashboardStats, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}

	now := s.now()
	thisMonth := now.Format("2006-01")
	lastMonth := now.AddDate(0, -1, 0).Format("2006-01")

	stats := DashboardStats{
		Month:      thisMonth,
		ByCategory: make(map[string]float64),
	}

	for _, e := range expenses {
		share := core.ParticipantTotals(e.LineItems)[core.SelfParticipant]
		switch e.TransactionDate.Format("2006-01") {
		case thisMonth:
			stats.ThisMonthTotal += share
			stats.ExpenseCount++
			if e.Type == core.TypeShared {
				stats.SharedCount++
			} else {
				stats.PersonalCount++
			}
			stats.ByCategory[e.Category] += share
		case lastMonth:
			stats.LastMonthTotal += share
		}
	}

	budget, err := s.Budget(ctx, userID, thisMonth)
	if err != nil {
		return DashboardStats{}, err
	}
	stats.Budget = budget.Amount
	stats.BudgetRemaining = budget.Amount - stats.ThisMonthTotal

	return stats, nil
}

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// CurrentMonth is the month key budgets default to when a request names none.
func (s *ExpenseService) CurrentMonth() string {
	return s.now().Format("2006-01")
}

// Budget returns the user's budget for a month, falling back to the
// configured default when none is set.
func (s *ExpenseService) Budget(ctx context.Context, userID, month string) (core.Budget, error) {
	if !monthPattern.MatchString(month) {
		return core.Budget{}, fmt.Errorf("invalid month %q: want YYYY-MM", month)
	}

	budget, err := s.store.GetBudget(ctx, userID, month)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Budget{UserID: userID, Month: month, Amount: s.defaultBudget}, nil
	}
	if err != nil {
		return core.Budget{}, err
	}
	return budget, nil
}

// SetBudget stores a monthly budget.
func (s *ExpenseService) SetBudget(ctx context.Context, userID, month string, amount float64) error {
	if !monthPattern.MatchString(month) {
		return fmt.Errorf("invalid month %q: want YYYY-MM", month)
	}
	if amount < 0 {
		return fmt.Errorf("budget amount must not be negative")
	}
	return s.store.SetBudget(ctx, userID, month, amount)
}
