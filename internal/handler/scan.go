package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/server/authctx"
	"happymeter-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

// ScanHandler serves the staff terminal: logging a visit from a customer
// card token, delivering a redemption code and browsing the customer base.
type ScanHandler struct {
	Ledger    service.LedgerService
	Rewards   service.RewardService
	Customers repository.CustomerRepository
	Programs  repository.ProgramRepository
	Logger    *slog.Logger
}

func (h ScanHandler) RegisterRoutes(r chi.Router) {
	r.Post("/scan", h.scan)
	r.Post("/redemptions/redeem", h.redeem)
	r.Get("/customers", h.customers)
}

func (h ScanHandler) scan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		Rating      *int   `json:"rating"`
		Comment     string `json:"comment"`
		SpendAmount int64  `json:"spendAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	if req.SpendAmount < 0 {
		writeError(w, http.StatusBadRequest, "spendAmount cannot be negative")
		return
	}

	var staffID *int64
	if u := authctx.FromContext(r.Context()); u != nil {
		staffID = &u.ID
	}

	result, err := h.Ledger.LogVisit(r.Context(), req.Token, service.VisitInput{
		StaffID:     staffID,
		Rating:      req.Rating,
		Comment:     req.Comment,
		SpendAmount: req.SpendAmount,
	})
	if err != nil {
		if !service.IsNotFound(err) && !service.IsPolicyViolation(err) {
			h.Logger.Error("scan failed", "err", err)
		}
		writeServiceError(w, err)
		return
	}

	payload := map[string]any{
		"customer":     customerPayload(result.Customer),
		"pointsEarned": result.PointsEarned,
		"spend": map[string]any{
			"amount":   result.Visit.Spend.Amount,
			"currency": result.Visit.Spend.Currency,
		},
		"visitAt": result.Visit.CreatedAt.Format(time.RFC3339),
	}
	if result.NewTier != nil {
		payload["newTier"] = map[string]any{
			"id":   result.NewTier.ID,
			"name": result.NewTier.Name,
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h ScanHandler) redeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string  `json:"code"`
		EvidenceURL *string `json:"evidenceUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	staffID := ""
	if u := authctx.FromContext(r.Context()); u != nil {
		staffID = strconv.FormatInt(u.ID, 10)
	}

	result, err := h.Rewards.Redeem(r.Context(), staffID, req.Code, req.EvidenceURL)
	if err != nil {
		if !service.IsNotFound(err) && !service.IsConflict(err) {
			h.Logger.Error("redeem failed", "code", req.Code, "err", err)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rewardName":   result.RewardName,
		"customerName": result.CustomerName,
	})
}

func (h ScanHandler) customers(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	customers, err := h.Customers.List(r.Context(), programID, limit)
	if err != nil {
		h.Logger.Error("customer list failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	views := make([]map[string]any, 0, len(customers))
	for _, c := range customers {
		views = append(views, customerPayload(c))
	}
	writeJSON(w, http.StatusOK, views)
}
