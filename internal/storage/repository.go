package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/i-dipanshu/project-raseed/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// PendingExpense is the minimal shape the sync worker needs to queue an
// export: the row id plus the version for stale-message detection.
type PendingExpense struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveExpense stores a canonical expense. The full record goes into
// parsed_json; scalar columns are denormalized for queries and the sync queue.
func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.Expense) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal expense: %w", err)
	}

	err = r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:              e.ID,
		UserID:          e.UserID,
		OriginalText:    e.OriginalText,
		VendorName:      e.VendorName,
		Category:        e.Category,
		ExpenseType:     e.Type,
		TotalAmount:     e.TotalAmount,
		TransactionDate: e.TransactionDate.Format("2006-01-02"),
		ParsedJSON:      string(payload),
		CreatedAt:       e.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// GetExpense retrieves a single canonical expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return decodeExpense(row)
}

// ListExpenses returns a user's expenses, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := decodeExpense(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// PendingSync returns expenses awaiting ledger export, oldest first. Rows in
// ERROR state are included so failed exports get retried.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingExpense, error) {
	rows, err := r.queries.GetPendingSyncExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}

	pending := make([]PendingExpense, len(rows))
	for i, row := range rows {
		pending[i] = PendingExpense{
			ID:        row.ID,
			Version:   row.Version,
			CreatedAt: row.CreatedAt,
		}
	}
	return pending, nil
}

// MarkSynced marks an expense as exported to the ledger.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if err := r.queries.MarkExpenseSynced(ctx, id); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

// MarkSyncError marks an expense export as failed so the sweep retries it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.queries.MarkExpenseSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	return nil
}

// SaveInsight stores a generated insight.
func (r *SQLiteRepository) SaveInsight(ctx context.Context, in core.Insight) error {
	err := r.queries.CreateInsight(ctx, Insight{
		ID:        in.ID,
		UserID:    in.UserID,
		Query:     in.Query,
		Content:   in.Content,
		Tags:      in.Tags,
		CreatedAt: in.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("create insight: %w", err)
	}
	return nil
}

// ListInsights returns a user's insights, newest first.
func (r *SQLiteRepository) ListInsights(ctx context.Context, userID string) ([]core.Insight, error) {
	rows, err := r.queries.ListInsightsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}

	insights := make([]core.Insight, len(rows))
	for i, row := range rows {
		insights[i] = core.Insight{
			ID:        row.ID,
			UserID:    row.UserID,
			Query:     row.Query,
			Content:   row.Content,
			Tags:      row.Tags,
			CreatedAt: row.CreatedAt,
		}
	}
	return insights, nil
}

// DeleteInsight removes one of the user's insights. Deleting an insight that
// does not exist (or belongs to someone else) reports ErrNotFound.
func (r *SQLiteRepository) DeleteInsight(ctx context.Context, id, userID string) error {
	affected, err := r.queries.DeleteInsight(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete insight: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBudget stores or replaces a user's budget for a month ("2006-01").
func (r *SQLiteRepository) SetBudget(ctx context.Context, userID, month string, amount float64) error {
	if err := r.queries.UpsertBudget(ctx, userID, month, amount); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// GetBudget returns a user's budget for a month, or ErrNotFound when none is
// set so the caller can apply the configured default.
func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, month string) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, userID, month)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return core.Budget{UserID: row.UserID, Month: row.Month, Amount: row.Amount}, nil
}

func decodeExpense(row Expense) (core.Expense, error) {
	var e core.Expense
	if err := json.Unmarshal([]byte(row.ParsedJSON), &e); err != nil {
		return core.Expense{}, fmt.Errorf("decode expense %s: %w", row.ID, err)
	}
	return e, nil
}
