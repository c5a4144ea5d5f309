package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
)

// PromotionAdminHandler manages announcement content shown on the card.
type PromotionAdminHandler struct {
	Promotions repository.PromotionRepository
	Programs   repository.ProgramRepository
	Logger     *slog.Logger
}

func (h PromotionAdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/promotions", h.list)
	r.Post("/promotions", h.create)
	r.Delete("/promotions/{id}", h.remove)
}

func (h PromotionAdminHandler) list(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	promos, err := h.Promotions.List(r.Context(), programID, false)
	if err != nil {
		h.Logger.Error("promotion list failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	views := make([]map[string]any, 0, len(promos))
	for _, p := range promos {
		views = append(views, promotionPayload(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h PromotionAdminHandler) create(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	var req struct {
		Title    string     `json:"title"`
		Body     string     `json:"body"`
		StartsAt *time.Time `json:"startsAt"`
		EndsAt   *time.Time `json:"endsAt"`
		IsActive bool       `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		writeError(w, http.StatusBadRequest, "endsAt cannot precede startsAt")
		return
	}
	promo, err := h.Promotions.Create(r.Context(), repository.SavePromotionParams{
		ProgramID: programID,
		Title:     req.Title,
		Body:      req.Body,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.Logger.Error("promotion create failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusCreated, promotionPayload(*promo))
}

func (h PromotionAdminHandler) remove(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Promotions.Delete(r.Context(), programID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "promotion not found")
			return
		}
		h.Logger.Error("promotion delete failed", "promotion", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
