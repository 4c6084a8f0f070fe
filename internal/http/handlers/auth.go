package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/middleware"
	"promptarchitect/internal/studio"
)

const exchangeTimeout = 15 * time.Second

type signInResponse struct {
	URL string `json:"url"`
}

type sessionResponse struct {
	Token     string          `json:"token,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Account   *studio.Account `json:"account"`
}

func accountOf(s *domain.Session) *studio.Account {
	if s == nil {
		return nil
	}
	return &studio.Account{
		ID:        s.User.ID,
		Provider:  string(s.User.Provider),
		Email:     s.User.Email,
		Name:      domain.AuthorName(s.User),
		AvatarURL: s.User.AvatarURL,
	}
}

// SignInStart returns the provider URL that starts a sign-in for this device.
func (a *App) SignInStart(w http.ResponseWriter, r *http.Request) {
	url, err := a.Identity.SignInURL(chi.URLParam(r, "provider"), middleware.DeviceIDFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, signInResponse{URL: url})
}

// SignInCallback completes a sign-in. Google posts id_token as a form field;
// GitHub redirects with ?code.
func (a *App) SignInCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid callback")
		return
	}
	grant := r.Form.Get("id_token")
	if grant == "" {
		grant = r.Form.Get("code")
	}
	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()
	token, session, _, err := a.Identity.Complete(ctx, chi.URLParam(r, "provider"), r.Form.Get("state"), grant)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: &session.ExpiresAt, Account: accountOf(session)})
}

// CurrentSession reports the identity carried by the bearer token.
func (a *App) CurrentSession(w http.ResponseWriter, r *http.Request) {
	s := middleware.SessionFromContext(r.Context())
	resp := sessionResponse{Account: accountOf(s)}
	if s != nil {
		resp.ExpiresAt = &s.ExpiresAt
	}
	a.json(w, http.StatusOK, resp)
}

// SignOut revokes the bearer token and clears the device session.
func (a *App) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := a.Identity.SignOut(middleware.DeviceIDFromContext(r.Context()), middleware.TokenFromContext(r.Context())); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
