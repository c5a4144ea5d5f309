package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/ports"
	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

// CardHandler is the customer-facing surface: everything behind the card
// token or an OTP session, no JWT involved.
type CardHandler struct {
	Identity    service.IdentityService
	Rewards     service.RewardService
	RewardRepo  repository.RewardRepository
	Tiers       repository.TierRepository
	Redemptions repository.RedemptionRepository
	Events      repository.EventRepository
	Programs    repository.ProgramRepository
	Promotions  repository.PromotionRepository
	Sessions    ports.SessionStore
	Logger      *slog.Logger
}

func (h CardHandler) RegisterRoutes(r chi.Router) {
	r.Post("/card/otp/start", h.startOTP)
	r.Post("/card/otp/verify", h.verifyOTP)
	r.Post("/card/logout", h.logout)
	r.Get("/card", h.card)
	r.Put("/card/profile", h.updateProfile)
	r.Post("/card/unlock", h.unlock)
	r.Post("/card/gift", h.claimGift)
	r.Get("/card/redemptions", h.redemptions)
	r.Get("/card/events", h.events)
}

func (h CardHandler) startOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProgramID int64  `json:"programId"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ProgramID == 0 || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "programId and phone are required")
		return
	}
	if err := h.Identity.StartOTP(r.Context(), req.ProgramID, req.Phone); err != nil {
		if !service.IsNotFound(err) {
			h.Logger.Error("otp start failed", "program", req.ProgramID, "err", err)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": true})
}

func (h CardHandler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProgramID int64  `json:"programId"`
		Phone     string `json:"phone"`
		Code      string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	c, err := h.Identity.VerifyOTP(r.Context(), req.ProgramID, req.Phone, req.Code)
	if err != nil {
		if service.IsPolicyViolation(err) {
			writeError(w, http.StatusUnauthorized, "invalid code")
			return
		}
		writeServiceError(w, err)
		return
	}
	h.Sessions.Set(w, c.Token)
	writeJSON(w, http.StatusOK, map[string]any{
		"customer": customerPayload(*c),
		"token":    c.Token,
	})
}

func (h CardHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"loggedOut": true})
}

// currentCustomer resolves the session token to a customer or replies 401.
func (h CardHandler) currentCustomer(w http.ResponseWriter, r *http.Request) *domain.Customer {
	c, err := h.Identity.ResolveToken(r.Context(), h.Sessions.Token(r))
	if err != nil {
		if service.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "sign in first")
		} else {
			h.Logger.Error("token lookup failed", "err", err)
			writeError(w, http.StatusInternalServerError, "something went wrong")
		}
		return nil
	}
	return c
}

func (h CardHandler) card(w http.ResponseWriter, r *http.Request) {
	c := h.currentCustomer(w, r)
	if c == nil {
		return
	}

	prog, err := h.Programs.Get(r.Context(), c.ProgramID)
	if err != nil {
		h.Logger.Error("program lookup failed", "program", c.ProgramID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	tiers, err := h.Tiers.List(r.Context(), c.ProgramID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	rewards, err := h.RewardRepo.List(r.Context(), c.ProgramID, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	promos, err := h.Promotions.List(r.Context(), c.ProgramID, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	tierViews := make([]map[string]any, 0, len(tiers))
	var currentTier map[string]any
	for _, t := range tiers {
		v := tierPayload(t)
		if c.TierID != nil && t.ID == *c.TierID {
			currentTier = v
		}
		tierViews = append(tierViews, v)
	}
	rewardViews := make([]map[string]any, 0, len(rewards))
	for _, rw := range rewards {
		rewardViews = append(rewardViews, rewardPayload(rw))
	}
	promoViews := make([]map[string]any, 0, len(promos))
	for _, p := range promos {
		promoViews = append(promoViews, promotionPayload(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customer":   customerPayload(*c),
		"program":    programPayload(*prog),
		"tier":       currentTier,
		"tiers":      tierViews,
		"rewards":    rewardViews,
		"promotions": promoViews,
	})
}

func (h CardHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	c := h.currentCustomer(w, r)
	if c == nil {
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		PhotoURL string `json:"photoUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	updated, err := h.Identity.UpdateProfile(r.Context(), c.ID, service.UpdateProfileInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customerPayload(*updated))
}

func (h CardHandler) unlock(w http.ResponseWriter, r *http.Request) {
	c := h.currentCustomer(w, r)
	if c == nil {
		return
	}
	var req struct {
		RewardID int64 `json:"rewardId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.RewardID == 0 {
		writeError(w, http.StatusBadRequest, "rewardId is required")
		return
	}
	red, err := h.Rewards.Unlock(r.Context(), c.ID, req.RewardID)
	if err != nil {
		if !service.IsNotFound(err) && !service.IsConflict(err) && !service.IsPolicyViolation(err) {
			h.Logger.Error("unlock failed", "customer", c.ID, "reward", req.RewardID, "err", err)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionPayload(*red))
}

func (h CardHandler) claimGift(w http.ResponseWriter, r *http.Request) {
	c := h.currentCustomer(w, r)
	if c == nil {
		return
	}
	red, err := h.Rewards.ClaimGift(r.Context(), c.ID)
	if err != nil {
		if !service.IsNotFound(err) && !service.IsConflict(err) && !service.IsPolicyViolation(err) {
			h.Logger.Error("gift claim failed", "customer", c.ID, "err", err)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptionPayload(*red))
}

func (h CardHandler) redemptions(w http.ResponseWriter, r *http.Request) {
	c := h.currentCustomer(w, r)
	if c == nil {
		return
	}
	reds, err := h.Redemptions.ListByCustomer(r.Context(), c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	views := make([]map[string]any, 0, len(reds))
	for _, red := range reds {
		views = append(views, redemptionPayload(red))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h CardHandler) events(w http.ResponseWriter, r *http.Request) {
	c := h.currentCustomer(w, r)
	if c == nil {
		return
	}
	events, err := h.Events.ListByCustomer(r.Context(), c.ID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	views := make([]map[string]any, 0, len(events))
	for _, e := range events {
		views = append(views, eventPayload(e))
	}
	writeJSON(w, http.StatusOK, views)
}
