package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of *sql.DB / *sql.Tx the query layer needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Sync statuses for the ledger export queue.
const (
	SyncPending = "PENDING"
	SyncDone    = "SYNCED"
	SyncError   = "ERROR"
)

// Expense is one row of the expenses table. The parsed_json column carries
// the full canonical expense; the scalar columns exist for filtering and the
// sync queue.
type Expense struct {
	ID              string
	UserID          string
	OriginalText    string
	VendorName      string
	Category        string
	ExpenseType     string
	TotalAmount     float64
	TransactionDate string
	ParsedJSON      string
	SyncStatus      string
	Version         int64
	CreatedAt       time.Time
}

type Insight struct {
	ID        string
	UserID    string
	Query     string
	Content   string
	Tags      string
	CreatedAt time.Time
}

type Budget struct {
	UserID string
	Month  string
	Amount float64
}

type CreateExpenseParams struct {
	ID              string
	UserID          string
	OriginalText    string
	VendorName      string
	Category        string
	ExpenseType     string
	TotalAmount     float64
	TransactionDate string
	ParsedJSON      string
	CreatedAt       time.Time
}

const createExpense = `
INSERT INTO expenses (
    id, user_id, original_text, vendor_name, category, expense_type,
    total_amount, transaction_date, parsed_json, sync_status, version, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'PENDING', 1, ?)
`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID, arg.UserID, arg.OriginalText, arg.VendorName, arg.Category,
		arg.ExpenseType, arg.TotalAmount, arg.TransactionDate, arg.ParsedJSON,
		arg.CreatedAt,
	)
	return err
}

const getExpense = `
SELECT id, user_id, original_text, vendor_name, category, expense_type,
       total_amount, transaction_date, parsed_json, sync_status, version, created_at
FROM expenses WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	return scanExpense(row)
}

const listExpensesByUser = `
SELECT id, user_id, original_text, vendor_name, category, expense_type,
       total_amount, transaction_date, parsed_json, sync_status, version, created_at
FROM expenses WHERE user_id = ?
ORDER BY created_at DESC, id
`

func (q *Queries) ListExpensesByUser(ctx context.Context, userID string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		e, err := scanExpenseRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const getPendingSyncExpenses = `
SELECT id, user_id, original_text, vendor_name, category, expense_type,
       total_amount, transaction_date, parsed_json, sync_status, version, created_at
FROM expenses WHERE sync_status IN ('PENDING', 'ERROR')
ORDER BY created_at
LIMIT ?
`

func (q *Queries) GetPendingSyncExpenses(ctx context.Context, limit int64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncExpenses, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		e, err := scanExpenseRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const markExpenseSynced = `
UPDATE expenses SET sync_status = 'SYNCED' WHERE id = ?
`

func (q *Queries) MarkExpenseSynced(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markExpenseSynced, id)
	return err
}

const markExpenseSyncError = `
UPDATE expenses SET sync_status = 'ERROR' WHERE id = ?
`

func (q *Queries) MarkExpenseSyncError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markExpenseSyncError, id)
	return err
}

const createInsight = `
INSERT INTO insights (id, user_id, query, content, tags, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateInsight(ctx context.Context, arg Insight) error {
	_, err := q.db.ExecContext(ctx, createInsight,
		arg.ID, arg.UserID, arg.Query, arg.Content, arg.Tags, arg.CreatedAt)
	return err
}

const listInsightsByUser = `
SELECT id, user_id, query, content, tags, created_at
FROM insights WHERE user_id = ?
ORDER BY created_at DESC, id
`

func (q *Queries) ListInsightsByUser(ctx context.Context, userID string) ([]Insight, error) {
	rows, err := q.db.QueryContext(ctx, listInsightsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Insight
	for rows.Next() {
		var i Insight
		if err := rows.Scan(&i.ID, &i.UserID, &i.Query, &i.Content, &i.Tags, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteInsight = `
DELETE FROM insights WHERE id = ? AND user_id = ?
`

func (q *Queries) DeleteInsight(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteInsight, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const upsertBudget = `
INSERT INTO budgets (user_id, month, amount, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, month) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
`

func (q *Queries) UpsertBudget(ctx context.Context, userID, month string, amount float64) error {
	_, err := q.db.ExecContext(ctx, upsertBudget, userID, month, amount, time.Now().UTC())
	return err
}

const getBudget = `
SELECT user_id, month, amount FROM budgets WHERE user_id = ? AND month = ?
`

func (q *Queries) GetBudget(ctx context.Context, userID, month string) (Budget, error) {
	var b Budget
	err := q.db.QueryRowContext(ctx, getBudget, userID, month).Scan(&b.UserID, &b.Month, &b.Amount)
	return b, err
}

func scanExpense(row *sql.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.UserID, &e.OriginalText, &e.VendorName, &e.Category,
		&e.ExpenseType, &e.TotalAmount, &e.TransactionDate, &e.ParsedJSON,
		&e.SyncStatus, &e.Version, &e.CreatedAt)
	return e, err
}

func scanExpenseRows(rows *sql.Rows) (Expense, error) {
	var e Expense
	err := rows.Scan(&e.ID, &e.UserID, &e.OriginalText, &e.VendorName, &e.Category,
		&e.ExpenseType, &e.TotalAmount, &e.TransactionDate, &e.ParsedJSON,
		&e.SyncStatus, &e.Version, &e.CreatedAt)
	return e, err
}
