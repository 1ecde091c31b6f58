package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"finplan/internal/api"
	"finplan/internal/core"
	"finplan/internal/log"
	"finplan/internal/records"
	"finplan/internal/services"
	"finplan/internal/session"
)

func (s *Server) handleGetFixedConfig(w http.ResponseWriter, r *http.Request) {
	user, err := queryIdentity(r)
	if err != nil {
		s.writeError(w, r, "fetch fixed expenses", err)
		return
	}
	cfg, err := s.finance.FixedConfig(r.Context(), user)
	if errors.Is(err, records.ErrSetupIncomplete) {
		writeJSON(w, http.StatusOK, api.FixedConfigResponse{})
		return
	}
	if err != nil {
		s.writeError(w, r, "fetch fixed expenses", err)
		return
	}
	out := api.FromConfig(cfg)
	writeJSON(w, http.StatusOK, api.FixedConfigResponse{Data: &out})
}

func (s *Server) handleSaveFixedConfig(w http.ResponseWriter, r *http.Request) {
	var req api.SaveFixedConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "save fixed expenses", err)
		return
	}
	user, err := bodyIdentity(r, req.Email)
	if err != nil {
		s.writeError(w, r, "save fixed expenses", err)
		return
	}
	for i := range req.Expenses {
		req.Expenses[i].Category = sanitizeInput(req.Expenses[i].Category)
	}
	cfg, err := req.FixedConfig.ToConfig()
	if err != nil {
		s.writeError(w, r, "save fixed expenses", records.Invalid(err))
		return
	}
	if err := s.finance.SaveFixedConfig(r.Context(), user, cfg); err != nil {
		s.writeError(w, r, "save fixed expenses", err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordChanged(r.Context(), log.OpSave, user.String(), "", "")

	out := api.FromConfig(cfg)
	writeJSON(w, http.StatusOK, api.FixedConfigResponse{Data: &out})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user, err := queryIdentity(r)
	if err != nil {
		s.writeError(w, r, "fetch expenses", err)
		return
	}
	list, err := s.finance.VariableExpenses(r.Context(), user)
	if err != nil {
		s.writeError(w, r, "fetch expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, api.ExpenseListResponse{Expenses: api.FromExpenses(list)})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req api.AddExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "add expense", err)
		return
	}
	user, err := bodyIdentity(r, req.Email)
	if err != nil {
		s.writeError(w, r, "add expense", err)
		return
	}
	req.Description = sanitizeInput(req.Description)
	e, err := req.ToExpense()
	if err != nil {
		s.writeError(w, r, "add expense", records.Invalid(err))
		return
	}
	created, err := s.finance.AddVariableExpense(r.Context(), user, e)
	if err != nil {
		s.writeError(w, r, "add expense", err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordChanged(r.Context(), log.OpCreate, user.String(), created.ID, string(created.Month))

	list, err := s.finance.VariableExpenses(r.Context(), user)
	if err != nil {
		s.writeError(w, r, "add expense", err)
		return
	}
	// clients read the created record from the end of the list
	list = slices.DeleteFunc(list, func(e core.VariableExpense) bool { return e.ID == created.ID })
	list = append(list, created)

	var resp api.AddExpenseResponse
	resp.Data.Expenses = api.FromExpenses(list)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, err := queryIdentity(r)
	if err != nil {
		s.writeError(w, r, "delete expense", err)
		return
	}
	id := r.PathValue("id")
	if err := s.finance.DeleteVariableExpense(r.Context(), user, id); err != nil {
		s.writeError(w, r, "delete expense", err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordChanged(r.Context(), log.OpDelete, user.String(), id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMonthlyExpenses(w http.ResponseWriter, r *http.Request) {
	user, err := queryIdentity(r)
	if err != nil {
		s.writeError(w, r, "fetch monthly expenses", err)
		return
	}
	spent, income, err := s.finance.MonthlyExpenses(r.Context(), user)
	if err != nil {
		s.writeError(w, r, "fetch monthly expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, api.MonthlyExpensesResponse{
		MonthlyExpenses: api.MonthlyTotals(spent),
		FixedIncome:     income.Dollars(),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	user, err := queryIdentity(r)
	if err != nil {
		s.writeError(w, r, "insights", err)
		return
	}
	month, err := queryMonth(r)
	if err != nil {
		s.writeError(w, r, "insights", err)
		return
	}
	snap, err := s.finance.Snapshot(r.Context(), user, month)
	if err != nil {
		s.writeError(w, r, "insights", err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromSnapshot(snap))
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil || !s.advisor.Enabled() {
		s.writeError(w, r, "advice", services.ErrAdvisorDisabled)
		return
	}
	user, err := queryIdentity(r)
	if err != nil {
		s.writeError(w, r, "advice", err)
		return
	}
	month, err := queryMonth(r)
	if err != nil {
		s.writeError(w, r, "advice", err)
		return
	}
	snap, err := s.finance.Snapshot(r.Context(), user, month)
	if err != nil {
		s.writeError(w, r, "advice", err)
		return
	}
	text, err := s.advisor.Advise(r.Context(), snap)
	if err != nil {
		s.writeError(w, r, "advice", err)
		return
	}
	writeJSON(w, http.StatusOK, api.AdviceResponse{Response: text})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.devEmail != "" {
		writeJSON(w, http.StatusOK, api.SessionResponse{Email: s.devEmail})
		return
	}
	if s.sessions == nil {
		s.writeError(w, r, "session", session.ErrNoSession)
		return
	}
	id, err := s.sessions.Current(r.Context(), r.Cookies()...)
	if err != nil {
		s.writeError(w, r, "session", err)
		return
	}
	writeJSON(w, http.StatusOK, api.SessionResponse{Email: id.String()})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every dependency check and reports request counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	if s.finance == nil {
		checks["records"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}

	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
		"metrics": map[string]any{
			"requests":            tm.TotalRequests,
			"server_errors":       tm.ServerErrors,
			"avg_response_ms":     tm.AverageResponseTime.Milliseconds(),
			"rate_limited":        rl.TotalHits,
			"rate_limit_clients":  rl.ClientCount,
			"suspicious_requests": s.detector.GetMetrics().SuspiciousRequests,
		},
	})
}
