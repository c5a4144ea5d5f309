package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/server/authctx"
	"happymeter-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

// RewardAdminHandler is the owner surface for the reward catalog.
type RewardAdminHandler struct {
	Rewards  repository.RewardRepository
	Programs repository.ProgramRepository
	Logger   *slog.Logger
}

func (h RewardAdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rewards", h.list)
	r.Post("/rewards", h.create)
	r.Put("/rewards/{id}", h.update)
	r.Delete("/rewards/{id}", h.remove)
}

type rewardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CostVisits  int    `json:"costVisits"`
	CostPoints  int64  `json:"costPoints"`
	IsActive    bool   `json:"isActive"`
}

func (req rewardRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.CostVisits < 0 || req.CostPoints < 0 {
		return "costs cannot be negative"
	}
	if (req.CostVisits > 0 || req.CostPoints > 0) && strings.Contains(req.Description, domain.GiftDescriptionTag) {
		return "a welcome gift cannot carry a cost"
	}
	return ""
}

func (h RewardAdminHandler) list(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	rewards, err := h.Rewards.List(r.Context(), programID, false)
	if err != nil {
		h.Logger.Error("reward list failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	views := make([]map[string]any, 0, len(rewards))
	for _, rw := range rewards {
		views = append(views, rewardPayload(rw))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h RewardAdminHandler) create(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.checkGiftSlot(w, r, programID, req, 0); err != nil {
		return
	}
	reward, err := h.Rewards.Create(r.Context(), repository.SaveRewardParams{
		ProgramID:   programID,
		Name:        req.Name,
		Description: req.Description,
		CostVisits:  req.CostVisits,
		CostPoints:  req.CostPoints,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.Logger.Error("reward create failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusCreated, rewardPayload(*reward))
}

func (h RewardAdminHandler) update(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	id, reward := h.ownReward(w, r, programID)
	if reward == nil {
		return
	}
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.checkGiftSlot(w, r, programID, req, id); err != nil {
		return
	}
	updated, err := h.Rewards.Update(r.Context(), id, repository.SaveRewardParams{
		Name:        req.Name,
		Description: req.Description,
		CostVisits:  req.CostVisits,
		CostPoints:  req.CostPoints,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.Logger.Error("reward update failed", "reward", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, rewardPayload(*updated))
}

func (h RewardAdminHandler) remove(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	id, reward := h.ownReward(w, r, programID)
	if reward == nil {
		return
	}
	// Soft delete: issued redemption codes keep pointing at the reward row.
	if err := h.Rewards.Deactivate(r.Context(), programID, id); err != nil {
		h.Logger.Error("reward delete failed", "reward", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// ownReward parses the path id and checks the reward belongs to programID.
func (h RewardAdminHandler) ownReward(w http.ResponseWriter, r *http.Request, programID int64) (int64, *domain.Reward) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, nil
	}
	reward, err := h.Rewards.Get(r.Context(), id)
	if err != nil || reward.ProgramID != programID {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			h.Logger.Error("reward lookup failed", "reward", id, "err", err)
			writeError(w, http.StatusInternalServerError, "something went wrong")
			return 0, nil
		}
		writeError(w, http.StatusNotFound, service.ErrRewardNotFound.Error())
		return 0, nil
	}
	return id, reward
}

// checkGiftSlot enforces at most one active welcome gift per program. A nil
// return means the write may proceed; otherwise the response is written.
func (h RewardAdminHandler) checkGiftSlot(w http.ResponseWriter, r *http.Request, programID int64, req rewardRequest, excludeID int64) error {
	if !req.IsActive || !strings.Contains(req.Description, domain.GiftDescriptionTag) {
		return nil
	}
	taken, err := h.Rewards.HasActiveGift(r.Context(), programID, excludeID)
	if err != nil {
		h.Logger.Error("gift check failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return err
	}
	if taken {
		writeServiceError(w, service.ErrGiftAlreadyExists)
		return service.ErrGiftAlreadyExists
	}
	return nil
}
