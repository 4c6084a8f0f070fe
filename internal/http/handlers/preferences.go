package handlers

import (
	"fmt"
	"net/http"

	"promptarchitect/internal/devicestore"
	"promptarchitect/internal/domain"
	"promptarchitect/internal/middleware"
)

type themeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

type themeResponse struct {
	Theme devicestore.Theme `json:"theme"`
}

func (a *App) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := a.Preferences.Theme(middleware.DeviceIDFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, themeResponse{Theme: theme})
}

func (a *App) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	theme, ok := devicestore.ParseTheme(req.Theme)
	if !ok {
		a.fail(w, r, fmt.Errorf("%w: unknown theme %q", domain.ErrValidation, req.Theme))
		return
	}
	if err := a.Preferences.SetTheme(middleware.DeviceIDFromContext(r.Context()), theme); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, themeResponse{Theme: theme})
}
