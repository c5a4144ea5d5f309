package session

import (
	"net/http"
	"time"
)

// CookieStore keeps the customer card token in an HTTP-only cookie. The
// token identifies, it does not authorize; eligibility checks stay in the
// services.
type CookieStore struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func NewCookieStore(ttl time.Duration, secure bool) CookieStore {
	return CookieStore{Name: "hm_card", TTL: ttl, Secure: secure}
}

func (s CookieStore) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.TTL),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s CookieStore) Token(r *http.Request) string {
	if c, err := r.Cookie(s.Name); err == nil && c.Value != "" {
		return c.Value
	}
	// Card links also pass the token explicitly.
	if t := r.Header.Get("X-Card-Token"); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

func (s CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
