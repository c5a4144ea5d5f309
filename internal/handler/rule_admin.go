package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
)

// RuleAdminHandler manages configurable earn rules. Conditions are a tagged
// union; unknown kinds are stored verbatim so configs written by newer
// clients survive an edit round-trip.
type RuleAdminHandler struct {
	Rules    repository.RuleRepository
	Rewards  repository.RewardRepository
	Programs repository.ProgramRepository
	Logger   *slog.Logger
}

func (h RuleAdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rules", h.list)
	r.Post("/rules", h.create)
	r.Put("/rules/{id}", h.update)
	r.Delete("/rules/{id}", h.remove)
}

type ruleRequest struct {
	Name      string               `json:"name"`
	Condition domain.RuleCondition `json:"condition"`
	RewardID  *int64               `json:"rewardId"`
	IsActive  bool                 `json:"isActive"`
}

func rulePayload(rule domain.Rule) map[string]any {
	payload := map[string]any{
		"id":        rule.ID,
		"name":      rule.Name,
		"condition": rule.Condition,
		"isActive":  rule.IsActive,
	}
	if rule.RewardID != nil {
		payload["rewardId"] = *rule.RewardID
	}
	return payload
}

func (h RuleAdminHandler) list(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	rules, err := h.Rules.List(r.Context(), programID)
	if err != nil {
		h.Logger.Error("rule list failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	views := make([]map[string]any, 0, len(rules))
	for _, rule := range rules {
		views = append(views, rulePayload(rule))
	}
	writeJSON(w, http.StatusOK, views)
}

// checkReward rejects a rule pointing at a reward outside the program.
func (h RuleAdminHandler) checkReward(w http.ResponseWriter, r *http.Request, programID int64, rewardID *int64) bool {
	if rewardID == nil {
		return true
	}
	reward, err := h.Rewards.Get(r.Context(), *rewardID)
	if err != nil || reward.ProgramID != programID {
		writeError(w, http.StatusBadRequest, "rewardId does not belong to this program")
		return false
	}
	return true
}

func (h RuleAdminHandler) create(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !h.checkReward(w, r, programID, req.RewardID) {
		return
	}
	rule, err := h.Rules.Create(r.Context(), repository.SaveRuleParams{
		ProgramID: programID,
		Name:      req.Name,
		Condition: req.Condition,
		RewardID:  req.RewardID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.Logger.Error("rule create failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusCreated, rulePayload(*rule))
}

func (h RuleAdminHandler) update(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !h.checkReward(w, r, programID, req.RewardID) {
		return
	}
	rule, err := h.Rules.Update(r.Context(), id, repository.SaveRuleParams{
		ProgramID: programID,
		Name:      req.Name,
		Condition: req.Condition,
		RewardID:  req.RewardID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.Logger.Error("rule update failed", "rule", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, rulePayload(*rule))
}

func (h RuleAdminHandler) remove(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Rules.Delete(r.Context(), programID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		h.Logger.Error("rule delete failed", "rule", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
