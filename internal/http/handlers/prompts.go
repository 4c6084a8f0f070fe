package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/middleware"
	"promptarchitect/internal/studio"
)

type updatePromptRequest struct {
	Name       *string  `json:"name" validate:"omitempty,max=120"`
	Text       *string  `json:"text" validate:"omitempty,max=4000"`
	Attributes []string `json:"attributes" validate:"omitempty,max=8,dive,required,max=64"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

type likeResponse struct {
	studio.LikeResult
	Community []studio.CommunityPrompt `json:"community"`
}

func promptID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

func localeOf(r *http.Request) string {
	return middleware.LocaleFromContext(r.Context())
}

// Community refetches and returns the public feed with this device's likes.
func (a *App) Community(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := c.Refresh(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, listResponse[studio.CommunityPrompt]{Items: a.view(c, r).Community})
}

// Library refetches and returns the caller's own prompts.
func (a *App) Library(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := c.Library(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, listResponse[domain.Prompt]{Items: items})
}

// Like toggles the device's like. Remote failures are already reverted and
// come back as 200 with reverted set.
func (a *App) Like(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := c.ToggleLike(r.Context(), middleware.SessionFromContext(r.Context()), promptID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, likeResponse{LikeResult: res, Community: a.view(c, r).Community})
}

// DeletePrompt removes an owned prompt. The client confirms with
// ?confirm=true or an X-Confirm: true header.
func (a *App) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := c.Delete(r.Context(), middleware.SessionFromContext(r.Context()), promptID(r), confirmed(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.view(c, r))
}

func confirmed(r *http.Request) bool {
	for _, v := range []string{r.URL.Query().Get("confirm"), r.Header.Get("X-Confirm")} {
		if ok, err := strconv.ParseBool(v); err == nil && ok {
			return true
		}
	}
	return false
}

// UpdatePrompt renames or edits an owned prompt. A name-only patch goes
// through Rename so unchanged names are dropped.
func (a *App) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req updatePromptRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	id, sess := promptID(r), middleware.SessionFromContext(r.Context())
	if req.Name != nil && req.Text == nil && req.Attributes == nil {
		_, err = c.Rename(r.Context(), sess, id, *req.Name)
	} else {
		err = c.UpdatePrompt(r.Context(), sess, id, domain.PromptPatch{Name: req.Name, Text: req.Text, Attributes: req.Attributes})
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.view(c, r))
}
