package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
)

// ProgramHandler is the owner surface for the loyalty program settings.
type ProgramHandler struct {
	Programs repository.ProgramRepository
	Users    repository.UserRepository
	Logger   *slog.Logger
}

func (h ProgramHandler) RegisterRoutes(r chi.Router) {
	r.Get("/program", h.get)
	r.Post("/program", h.create)
	r.Put("/program", h.update)
}

type programRequest struct {
	Name               string `json:"name"`
	PointsPercentage   int    `json:"pointsPercentage"`
	FirstVisitGift     bool   `json:"firstVisitGift"`
	FirstVisitGiftText string `json:"firstVisitGiftText"`
	ThemeColor         string `json:"themeColor"`
	LogoURL            string `json:"logoUrl"`
}

func (req programRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.PointsPercentage < 0 || req.PointsPercentage > 100 {
		return "pointsPercentage must be between 0 and 100"
	}
	return ""
}

func (h ProgramHandler) get(w http.ResponseWriter, r *http.Request) {
	u := authctx.FromContext(r.Context())
	id, err := resolveProgramID(r.Context(), h.Programs, u)
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	prog, err := h.Programs.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	writeJSON(w, http.StatusOK, programPayload(*prog))
}

func (h ProgramHandler) create(w http.ResponseWriter, r *http.Request) {
	u := authctx.FromContext(r.Context())
	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if _, err := h.Programs.GetByOwner(r.Context(), u.ID); err == nil {
		writeError(w, http.StatusConflict, "account already has a program")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.Logger.Error("program lookup failed", "owner", u.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	prog, err := h.Programs.Create(r.Context(), repository.SaveProgramParams{
		OwnerID:            u.ID,
		Name:               req.Name,
		PointsPercentage:   req.PointsPercentage,
		FirstVisitGift:     req.FirstVisitGift,
		FirstVisitGiftText: req.FirstVisitGiftText,
		ThemeColor:         req.ThemeColor,
		LogoURL:            req.LogoURL,
	})
	if err != nil {
		h.Logger.Error("program create failed", "owner", u.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	if err := h.Users.AttachProgram(r.Context(), u.ID, prog.ID); err != nil {
		h.Logger.Error("program attach failed", "owner", u.ID, "program", prog.ID, "err", err)
	}
	writeJSON(w, http.StatusCreated, programPayload(*prog))
}

func (h ProgramHandler) update(w http.ResponseWriter, r *http.Request) {
	u := authctx.FromContext(r.Context())
	id, err := resolveProgramID(r.Context(), h.Programs, u)
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	prog, err := h.Programs.Update(r.Context(), id, repository.SaveProgramParams{
		Name:               req.Name,
		PointsPercentage:   req.PointsPercentage,
		FirstVisitGift:     req.FirstVisitGift,
		FirstVisitGiftText: req.FirstVisitGiftText,
		ThemeColor:         req.ThemeColor,
		LogoURL:            req.LogoURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, errNoProgram.Error())
			return
		}
		h.Logger.Error("program update failed", "program", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, programPayload(*prog))
}
