package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"leadforge-hq/saturn/pkg/budget"
	"leadforge-hq/saturn/pkg/rates"
)

// statusResponse is the wire shape of a budget status.
type statusResponse struct {
	AccountID          string  `json:"account_id"`
	Tier               string  `json:"tier"`
	DailyBudget        float64 `json:"daily_budget"`
	MonthlyBudget      float64 `json:"monthly_budget"`
	DailySpend         float64 `json:"daily_spend"`
	MonthlySpend       float64 `json:"monthly_spend"`
	DailyRemaining     float64 `json:"daily_remaining"`
	MonthlyRemaining   float64 `json:"monthly_remaining"`
	DailyUtilization   float64 `json:"daily_utilization"`
	MonthlyUtilization float64 `json:"monthly_utilization"`
	CanContinue        bool    `json:"can_continue"`
	AlertLevel         string  `json:"alert_level"`
}

func toStatusResponse(status *budget.Status) statusResponse {
	a := status.Account
	return statusResponse{
		AccountID:          a.AccountID,
		Tier:               string(a.Tier),
		DailyBudget:        a.DailyBudget,
		MonthlyBudget:      a.MonthlyBudget,
		DailySpend:         a.CurrentDailySpend,
		MonthlySpend:       a.CurrentMonthlySpend,
		DailyRemaining:     status.DailyRemaining,
		MonthlyRemaining:   status.MonthlyRemaining,
		DailyUtilization:   status.DailyUtilization,
		MonthlyUtilization: status.MonthlyUtilization,
		CanContinue:        status.CanContinue,
		AlertLevel:         string(status.AlertLevel),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID     string  `json:"account_id"`
		DailyBudget   float64 `json:"daily_budget"`
		MonthlyBudget float64 `json:"monthly_budget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	account, err := s.engine.InitializeBudgetControl(r.Context(), req.AccountID, req.DailyBudget, req.MonthlyBudget)
	if err != nil {
		if errors.Is(err, budget.ErrAlreadyInitialized) {
			writeError(w, http.StatusConflict, "account already initialized")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	status, err := s.engine.GetStatus(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, budget.ErrNotInitialized) {
			writeError(w, http.StatusNotFound, "account not initialized")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(status))
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	tier := rates.Tier(r.URL.Query().Get("tier"))

	accounts, err := s.engine.ListAccounts(r.Context(), tier)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID := q.Get("account_id")
	start, end := q.Get("start"), q.Get("end")
	if accountID == "" || start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "account_id, start and end are required")
		return
	}

	report, err := s.engine.GenerateCostReport(r.Context(), accountID, start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleIntensity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
		Intensity string `json:"intensity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" || req.Intensity == "" {
		writeError(w, http.StatusBadRequest, "account_id and intensity are required")
		return
	}

	profile, err := s.engine.SetIntensity(r.Context(), req.AccountID, budget.Intensity(req.Intensity))
	if err != nil {
		if errors.Is(err, budget.ErrNotInitialized) {
			writeError(w, http.StatusNotFound, "account not initialized")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
		Stop      bool   `json:"stop"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	if err := s.engine.SetEmergencyStop(r.Context(), req.AccountID, req.Stop); err != nil {
		if errors.Is(err, budget.ErrNotInitialized) {
			writeError(w, http.StatusNotFound, "account not initialized")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": req.AccountID, "stopped": req.Stop})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
