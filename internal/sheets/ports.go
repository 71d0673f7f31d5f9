package sheets

import (
	"context"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

// LedgerAppender is the outbound port the sync worker exports expenses
// through. Implementations append one row per expense and return a reference
// to the written row.
type LedgerAppender interface {
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
