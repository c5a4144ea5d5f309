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
	"happymeter-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

// StaffHandler lets a program owner manage staff accounts.
type StaffHandler struct {
	Auth     service.AuthService
	Users    repository.UserRepository
	Programs repository.ProgramRepository
	Logger   *slog.Logger
}

func (h StaffHandler) RegisterRoutes(r chi.Router) {
	r.Get("/staff", h.list)
	r.Post("/staff", h.create)
	r.Delete("/staff/{id}", h.remove)
}

func (h StaffHandler) list(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	staff, err := h.Users.ListStaff(r.Context(), programID)
	if err != nil {
		h.Logger.Error("staff list failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	views := make([]map[string]any, 0, len(staff))
	for _, u := range staff {
		views = append(views, userPayload(u))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h StaffHandler) create(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	staff, err := h.Auth.CreateStaff(r.Context(), service.CreateStaffInput{
		ProgramID: programID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.Logger.Error("staff create failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusCreated, userPayload(*staff))
}

func (h StaffHandler) remove(w http.ResponseWriter, r *http.Request) {
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
	staff, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "staff not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	if staff.Role != domain.RoleStaff || staff.ProgramID == nil || *staff.ProgramID != programID {
		writeError(w, http.StatusNotFound, "staff not found")
		return
	}
	if err := h.Users.Delete(r.Context(), id); err != nil {
		h.Logger.Error("staff delete failed", "staff", id, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
