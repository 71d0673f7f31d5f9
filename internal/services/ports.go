package services

import (
	"context"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

// Ports the services depend on. The SQLite repository satisfies the store
// interfaces; the AMQP client satisfies EventPublisher.
type (
	ExpenseStore interface {
		SaveExpense(ctx context.Context, e core.Expense) error
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
		SetBudget(ctx context.Context, userID, month string, amount float64) error
		GetBudget(ctx context.Context, userID, month string) (core.Budget, error)
	}

	InsightStore interface {
		SaveInsight(ctx context.Context, in core.Insight) error
		ListInsights(ctx context.Context, userID string) ([]core.Insight, error)
		DeleteInsight(ctx context.Context, id, userID string) error
	}

	EventPublisher interface {
		PublishExpenseRecorded(ctx context.Context, id string, version int64) error
	}
)
