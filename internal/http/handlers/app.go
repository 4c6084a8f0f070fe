package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"promptarchitect/internal/devicestore"
	"promptarchitect/internal/domain"
	"promptarchitect/internal/identity"
	"promptarchitect/internal/infra"
	"promptarchitect/internal/middleware"
	"promptarchitect/internal/studio"
	"promptarchitect/internal/validation"
)

// Identity is the sign-in surface the handlers need.
type Identity interface {
	SignInURL(provider, deviceID string) (string, error)
	Complete(ctx context.Context, provider, state, grant string) (string, *domain.Session, string, error)
	Current(token string) (*domain.Session, error)
	SignOut(deviceID, token string) error
}

// Preferences stores per-device settings.
type Preferences interface {
	Theme(deviceID string) (devicestore.Theme, error)
	SetTheme(deviceID string, theme devicestore.Theme) error
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App carries the dependencies shared by every handler.
type App struct {
	Studio         *studio.Hub
	Identity       Identity
	Preferences    Preferences
	DB             Pinger
	Logger         infra.Logger
	Validator      *validation.Validator
	AITimeout      time.Duration
	MaxUploadBytes int64
	// DefaultProvider is suggested in sign_in_url hints.
	DefaultProvider string
}

type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	SignInURL string            `json:"sign_in_url,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": errorBody{Code: errCode, Message: message}})
}

// fail maps a domain error onto the HTTP error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Message: err.Error()}
	status := http.StatusInternalServerError
	var fields *validation.FieldError
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		status, body.Code = http.StatusUnauthorized, "auth_required"
		body.SignInURL = "/v1/auth/" + a.signInProvider() + "/start"
	case errors.As(err, &fields):
		status, body.Code, body.Fields = http.StatusUnprocessableEntity, "validation_failed", fields.Fields
	case errors.Is(err, domain.ErrValidation):
		status, body.Code = http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, domain.ErrPermissionDenied):
		status, body.Code = http.StatusForbidden, "permission_denied"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, identity.ErrUnknownProvider):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrBusy):
		status, body.Code = http.StatusConflict, "busy"
	case errors.Is(err, domain.ErrConfirmationRequired):
		status, body.Code = http.StatusPreconditionRequired, "confirmation_required"
	case errors.Is(err, domain.ErrAIFailure):
		status, body.Code = http.StatusBadGateway, "ai_failure"
	case errors.Is(err, domain.ErrRemote):
		status, body.Code = http.StatusServiceUnavailable, "remote_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, body.Code = http.StatusGatewayTimeout, "timeout"
	default:
		body.Code, body.Message = "internal", "internal error"
	}
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("request failed")
	}
	a.json(w, status, map[string]any{"error": body})
}

func (a *App) signInProvider() string {
	if a.DefaultProvider != "" {
		return a.DefaultProvider
	}
	return string(domain.AuthProviderGoogle)
}

// decode reads a JSON body into dst and validates it.
func (a *App) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid payload: %v", domain.ErrValidation, err)
	}
	return a.Validator.Validate(dst)
}

// coordinator returns the caller's device coordinator with its session
// synced to the request's bearer token.
func (a *App) coordinator(r *http.Request) (*studio.Coordinator, error) {
	c, err := a.Studio.Get(middleware.DeviceIDFromContext(r.Context()))
	if err != nil {
		return nil, err
	}
	if err := c.SetSession(r.Context(), middleware.SessionFromContext(r.Context())); err != nil {
		a.Logger.Warn().Err(err).Str("device_id", c.DeviceID()).Msg("refresh after session sync failed")
	}
	return c, nil
}

// view is the device state as the requesting session may see it.
func (a *App) view(c *studio.Coordinator, r *http.Request) studio.View {
	return c.ViewAs(middleware.SessionFromContext(r.Context()))
}

// aiContext bounds AI calls and carries the caller's locale.
func (a *App) aiContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := studio.WithLocale(r.Context(), middleware.LocaleFromContext(r.Context()))
	if a.AITimeout > 0 {
		return context.WithTimeout(ctx, a.AITimeout)
	}
	return context.WithCancel(ctx)
}
