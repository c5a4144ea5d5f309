package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
)

// TierAdminHandler is the owner surface for the tier ladder.
type TierAdminHandler struct {
	Tiers    repository.TierRepository
	Programs repository.ProgramRepository
	Logger   *slog.Logger
}

func (h TierAdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tiers", h.list)
	r.Post("/tiers", h.create)
	r.Put("/tiers/{id}", h.update)
	r.Delete("/tiers/{id}", h.remove)
}

type tierRequest struct {
	Position       int    `json:"position"`
	Name           string `json:"name"`
	RequiredVisits int    `json:"requiredVisits"`
	RequiredPoints int64  `json:"requiredPoints"`
	Color          string `json:"color"`
	Benefits       string `json:"benefits"`
}

func (req tierRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Position < 0 {
		return "position cannot be negative"
	}
	if req.RequiredVisits < 0 || req.RequiredPoints < 0 {
		return "thresholds cannot be negative"
	}
	return ""
}

func (h TierAdminHandler) list(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	tiers, err := h.Tiers.List(r.Context(), programID)
	if err != nil {
		h.Logger.Error("tier list failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	views := make([]map[string]any, 0, len(tiers))
	for _, t := range tiers {
		views = append(views, tierPayload(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h TierAdminHandler) create(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	var req tierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	tier, err := h.Tiers.Create(r.Context(), repository.SaveTierParams{
		ProgramID:      programID,
		Position:       req.Position,
		Name:           req.Name,
		RequiredVisits: req.RequiredVisits,
		RequiredPoints: req.RequiredPoints,
		Color:          req.Color,
		Benefits:       req.Benefits,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "a tier already sits at that position")
			return
		}
		h.Logger.Error("tier create failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusCreated, tierPayload(*tier))
}

func (h TierAdminHandler) update(w http.ResponseWriter, r *http.Request) {
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
	existing, err := h.Tiers.Get(r.Context(), id)
	if err != nil || existing.ProgramID != programID {
		writeError(w, http.StatusNotFound, "tier not found")
		return
	}
	var req tierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	tier, err := h.Tiers.Update(r.Context(), id, repository.SaveTierParams{
		Position:       req.Position,
		Name:           req.Name,
		RequiredVisits: req.RequiredVisits,
		RequiredPoints: req.RequiredPoints,
		Color:          req.Color,
		Benefits:       req.Benefits,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "a tier already sits at that position")
			return
		}
		h.Logger.Error("tier update failed", "tier", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, tierPayload(*tier))
}

func (h TierAdminHandler) remove(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Tiers.Delete(r.Context(), programID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tier not found")
			return
		}
		h.Logger.Error("tier delete failed", "tier", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
