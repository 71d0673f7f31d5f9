package http

import (
	"net/http"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

type parseExpenseRequest struct {
	Text string `json:"text"`
}

type parseExpenseResponse struct {
	Expense   core.Expense                `json:"expense"`
	Totals    map[string]float64          `json:"totals"`
	Breakdown map[string][]core.ItemShare `json:"breakdown"`
	Warnings  []core.TotalMismatch        `json:"warnings,omitempty"`
}

func (s *Server) handleParseExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req parseExpenseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := sanitizeInput(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	result, err := s.expenses.RecordExpense(r.Context(), userID, text)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.statsCache.Delete(userID)

	writeJSON(w, http.StatusCreated, parseExpenseResponse{
		Expense:   result.Expense,
		Totals:    core.ParticipantTotals(result.Expense.LineItems),
		Breakdown: core.AllocationBreakdown(result.Expense.LineItems),
		Warnings:  result.Warnings,
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	expenses, err := s.expenses.ListExpenses(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (s *Server) handleAllocations(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	report, err := s.expenses.Allocations(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSharedSpaces(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	spaces, err := s.expenses.SharedSpaces(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if spaces == nil {
		spaces = []core.SharedSpace{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"shared_spaces": spaces})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if stats, ok := s.statsCache.Get(userID); ok {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := s.expenses.DashboardStats(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.statsCache.Set(userID, stats)
	writeJSON(w, http.StatusOK, stats)
}

type budgetRequest struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = s.expenses.CurrentMonth()
	}
	budget, err := s.expenses.Budget(r.Context(), userID, month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req budgetRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Month == "" {
		req.Month = s.expenses.CurrentMonth()
	}
	if err := s.expenses.SetBudget(r.Context(), userID, req.Month, req.Amount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.statsCache.Delete(userID)
	writeJSON(w, http.StatusOK, core.Budget{UserID: userID, Month: req.Month, Amount: req.Amount})
}

type insightRequest struct {
	Query string `json:"query"`
	Tags  string `json:"tags,omitempty"`
}

func (s *Server) handleGenerateInsight(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req insightRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := sanitizeInput(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	in, err := s.insights.GenerateInsight(r.Context(), userID, query, sanitizeInput(req.Tags))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	insights, err := s.insights.ListInsights(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if insights == nil {
		insights = []core.Insight{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

func (s *Server) handleDeleteInsight(w http.ResponseWriter, r *http.Request) {
	userID, err := authUserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := s.insights.DeleteInsight(r.Context(), r.PathValue("id"), userID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
