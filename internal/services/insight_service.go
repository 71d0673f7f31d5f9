package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i-dipanshu/project-raseed/internal/core"
	"github.com/i-dipanshu/project-raseed/internal/insight"
	"github.com/i-dipanshu/project-raseed/internal/log"
)

// InsightService answers spending questions over the user's expense history
// and persists the answers for later retrieval.
type InsightService struct {
	generator insight.Generator
	expenses  ExpenseStore
	store     InsightStore
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

func NewInsightService(gen insight.Generator, expenses ExpenseStore, store InsightStore, logger *log.Logger) *InsightService {
	return &InsightService{
		generator: gen,
		expenses:  expenses,
		store:     store,
		logger:    logger.WithComponent(log.ComponentInsight),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// GenerateInsight answers a question about the user's spending. Compound
// questions joined by "and also" are answered part by part and the answers
// concatenated. The result is saved and returned.
func (s *InsightService) GenerateInsight(ctx context.Context, userID, query, tags string) (core.Insight, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return core.Insight{}, fmt.Errorf("query must not be empty")
	}

	expenses, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return core.Insight{}, err
	}

	parts := splitCompoundQuery(query)
	answers := make([]string, 0, len(parts))
	for _, part := range parts {
		answer, err := s.generator.Generate(ctx, part, expenses)
		if err != nil {
			return core.Insight{}, fmt.Errorf("generate insight: %w", err)
		}
		answers = append(answers, answer)
	}

	in := core.Insight{
		ID:        s.newID(),
		UserID:    userID,
		Query:     query,
		Content:   strings.Join(answers, "\n\n"),
		Tags:      strings.TrimSpace(tags),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveInsight(ctx, in); err != nil {
		return core.Insight{}, fmt.Errorf("save insight: %w", err)
	}

	s.logger.InfoContext(ctx, "Insight generated",
		log.FieldInsightID, in.ID,
		log.FieldUserID, userID,
		"query_parts", len(parts))

	return in, nil
}

// Summarize produces the canned spending overview.
func (s *InsightService) Summarize(ctx context.Context, userID string) (core.Insight, error) {
	return s.GenerateInsight(ctx, userID, "Summarize my spending this month", "summary")
}

func (s *InsightService) ListInsights(ctx context.Context, userID string) ([]core.Insight, error) {
	return s.store.ListInsights(ctx, userID)
}

func (s *InsightService) DeleteInsight(ctx context.Context, id, userID string) error {
	return s.store.DeleteInsight(ctx, id, userID)
}

// splitCompoundQuery breaks "X and also Y" style questions into independent
// parts. Single questions pass through unchanged.
func splitCompoundQuery(query string) []string {
	separators := []string{" and also ", "? also ", "; also "}
	parts := []string{query}
	for _, sep := range separators {
		var next []string
		for _, p := range parts {
			next = append(next, splitOn(p, sep)...)
		}
		parts = next
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{query}
	}
	return out
}

// splitOn splits case-insensitively on sep, preserving the original casing of
// the surrounding text.
func splitOn(s, sep string) []string {
	lower := strings.ToLower(s)
	var parts []string
	for {
		i := strings.Index(lower, sep)
		if i < 0 {
			parts = append(parts, s)
			return parts
		}
		parts = append(parts, s[:i])
		s = s[i+len(sep):]
		lower = lower[i+len(sep):]
	}
}
