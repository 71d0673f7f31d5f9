// Package worker mirrors recorded expenses into the external ledger. The
// primary path is AMQP driven; a periodic sweep over pending rows covers
// lost messages and worker downtime.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i-dipanshu/project-raseed/internal/amqp"
	"github.com/i-dipanshu/project-raseed/internal/core"
	"github.com/i-dipanshu/project-raseed/internal/log"
	"github.com/i-dipanshu/project-raseed/internal/sheets"
	"github.com/i-dipanshu/project-raseed/internal/storage"
)

// SyncStore is the storage surface the worker needs.
type SyncStore interface {
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	PendingSync(ctx context.Context, limit int) ([]storage.PendingExpense, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// Consumer delivers recorded-expense messages; the AMQP client satisfies it.
type Consumer interface {
	ConsumeExpenseRecorded(ctx context.Context, handler func(*amqp.ExpenseRecordedMessage) error) error
}

// LedgerWorker appends recorded expenses to the ledger and keeps the
// sync_status bookkeeping in SQLite accurate.
type LedgerWorker struct {
	store     SyncStore
	ledger    sheets.LedgerAppender
	consumer  Consumer
	logger    *log.Logger
	batchSize int
	interval  time.Duration
}

func NewLedgerWorker(store SyncStore, ledger sheets.LedgerAppender, consumer Consumer, batchSize int, interval time.Duration, logger *log.Logger) *LedgerWorker {
	return &LedgerWorker{
		store:     store,
		ledger:    ledger,
		consumer:  consumer,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
		interval:  interval,
	}
}

// Run performs the startup sweep, then consumes messages and sweeps
// periodically until the context is cancelled.
func (w *LedgerWorker) Run(ctx context.Context) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup sync check failed", log.FieldError, err.Error())
	}

	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.ConsumeExpenseRecorded(ctx, func(msg *amqp.ExpenseRecordedMessage) error {
				return w.HandleMessage(ctx, msg)
			})
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					w.logger.ErrorContext(ctx, "Pending sweep failed", log.FieldError, err.Error())
				}
			}
		}
	})

	return g.Wait()
}

// HandleMessage appends one recorded expense to the ledger. A missing
// expense is dropped without error: the row was deleted or the message is
// stale, redelivery cannot help.
func (w *LedgerWorker) HandleMessage(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	w.logger.InfoContext(ctx, "Processing recorded expense message",
		log.FieldExpenseID, msg.ID, "message_version", msg.Version)

	expense, err := w.store.GetExpense(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Expense no longer exists, dropping message",
			log.FieldExpenseID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}

	return w.appendToLedger(ctx, expense)
}

// ProcessPending syncs one batch of rows still marked PENDING or ERROR.
// This is the recovery path for lost messages.
func (w *LedgerWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing pending expenses", log.FieldBatchSize, len(pending))

	for _, p := range pending {
		expense, err := w.store.GetExpense(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to load pending expense",
				log.FieldExpenseID, p.ID, log.FieldError, err.Error())
			continue
		}
		if err := w.appendToLedger(ctx, expense); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync pending expense",
				log.FieldExpenseID, p.ID, log.FieldError, err.Error())
		}
	}
	return nil
}

// StartupSyncCheck drains the backlog accumulated while the worker was down.
// It uses a larger batch than the periodic sweep.
func (w *LedgerWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		w.logger.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Found pending expenses on startup", log.FieldBatchSize, len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		expense, err := w.store.GetExpense(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to load expense for startup sync",
				log.FieldExpenseID, p.ID, log.FieldError, err.Error())
			failed++
			continue
		}
		if err := w.appendToLedger(ctx, expense); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync expense during startup",
				log.FieldExpenseID, p.ID, log.FieldError, err.Error())
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}

func (w *LedgerWorker) appendToLedger(ctx context.Context, expense core.Expense) error {
	ref, err := w.ledger.Append(ctx, expense)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, expense.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldExpenseID, expense.ID, log.FieldError, markErr.Error())
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.store.MarkSynced(ctx, expense.ID); err != nil {
		// The append worked; the row will be retried and the ledger may get a
		// duplicate, which is preferable to losing the entry.
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldExpenseID, expense.ID, log.FieldError, err.Error())
	}

	w.logger.InfoContext(ctx, "Expense appended to ledger",
		log.FieldExpenseID, expense.ID,
		log.FieldSheetsRef, ref,
		log.FieldVendor, expense.VendorName,
		log.FieldTotalAmount, expense.TotalAmount)
	return nil
}
