package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptarchitect/internal/devicestore"
	"promptarchitect/internal/domain"
	"promptarchitect/internal/http/handlers"
	"promptarchitect/internal/identity"
	"promptarchitect/internal/infra/google"
	"promptarchitect/internal/middleware"
	"promptarchitect/internal/studio"
	"promptarchitect/internal/validation"
)

const (
	deviceID = "dev-router-test"
	userID   = "0b6f7a8e-6f0e-4a57-9d43-2b7c1b1d0c01"
)

type stubStyle struct {
	synthErr error
}

func (s *stubStyle) ExtractStyle(context.Context, *domain.Image) domain.Extraction {
	return domain.Extraction{Kind: domain.ExtractionParsed, Prompt: "chiaroscuro portrait", Attributes: []string{"Low Key", "Film Grain"}}
}

func (s *stubStyle) Synthesize(context.Context, string, domain.Resolution) (*domain.Image, error) {
	if s.synthErr != nil {
		return nil, s.synthErr
	}
	return &domain.Image{MimeType: "image/png", Data: []byte("synth")}, nil
}

func (s *stubStyle) ApplyStyle(context.Context, *domain.Image, string, []string) (*domain.Image, error) {
	return &domain.Image{MimeType: "image/png", Data: []byte("styled")}, nil
}

func (s *stubStyle) Edit(context.Context, *domain.Image, string) (*domain.Image, error) {
	return nil, nil
}

type stubRepo struct {
	mu         sync.Mutex
	prompts    []domain.Prompt
	failAdjust bool
	failList   bool
}

func (r *stubRepo) ListCommunity(context.Context) ([]domain.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList {
		return nil, errors.New("connection refused")
	}
	var out []domain.Prompt
	for _, p := range r.prompts {
		if p.IsPublic() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRepo) ListLibrary(_ context.Context, uid string) ([]domain.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Prompt
	for _, p := range r.prompts {
		if p.UserID == uid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRepo) Insert(_ context.Context, np domain.NewPrompt) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := fmt.Sprintf("p-%d", len(r.prompts)+1)
	r.prompts = append(r.prompts, domain.Prompt{ID: id, UserID: np.UserID, Name: np.Name, Text: np.Text, Visibility: np.Visibility, Author: np.Author})
	return id, nil
}

func (r *stubRepo) Update(_ context.Context, id, uid string, patch domain.PromptPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.prompts {
		if p.ID == id && p.UserID == uid {
			if patch.Name != nil {
				r.prompts[i].Name = *patch.Name
			}
			return nil
		}
	}
	return domain.ErrPermissionDenied
}

func (r *stubRepo) Delete(_ context.Context, id, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.prompts {
		if p.ID == id && p.UserID == uid {
			r.prompts = slices.Delete(r.prompts, i, i+1)
			return nil
		}
	}
	return domain.ErrPermissionDenied
}

func (r *stubRepo) AdjustLikes(_ context.Context, id string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAdjust {
		return 0, errors.New("timeout")
	}
	for i, p := range r.prompts {
		if p.ID == id {
			r.prompts[i].Likes = domain.ClampLikes(p.Likes + delta)
			return r.prompts[i].Likes, nil
		}
	}
	return 0, domain.ErrNotFound
}

type stubUsers struct{}

func (stubUsers) UpsertExternal(_ context.Context, ext domain.ExternalIdentity) (*domain.User, error) {
	return &domain.User{ID: userID, Provider: ext.Provider, ExternalID: ext.ExternalID, Email: ext.Email, Name: ext.Name}, nil
}

func (stubUsers) GetByID(context.Context, string) (*domain.User, error) { return nil, domain.ErrNotFound }

type okVerifier struct{}

func (okVerifier) VerifyIDToken(context.Context, string) (*google.IDClaims, error) {
	return &google.IDClaims{Subject: "g-1", Email: "ada@example.com", Name: "Ada Lovelace"}, nil
}

type env struct {
	handler http.Handler
	style   *stubStyle
	repo    *stubRepo
}

func newEnv(t *testing.T, prompts ...domain.Prompt) *env {
	t.Helper()
	store, err := devicestore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := zerolog.Nop()
	broker := identity.NewBroker()
	tokens := identity.NewTokenManager("0123456789abcdef0123456789abcdef", "test", time.Hour)
	ident := identity.NewService(tokens, stubUsers{}, store, store, broker, logger,
		identity.NewGoogleProvider("client-id", "http://localhost/v1/auth/google/callback", okVerifier{}))

	e := &env{style: &stubStyle{}, repo: &stubRepo{prompts: prompts}}
	hub := studio.NewHub(studio.Deps{Style: e.style, Prompts: e.repo, Likes: store, Logger: logger}, broker, time.Hour)
	t.Cleanup(hub.Close)

	app := &handlers.App{
		Studio:         hub,
		Identity:       ident,
		Preferences:    store,
		Logger:         logger,
		Validator:      validation.New(),
		AITimeout:      5 * time.Second,
		MaxUploadBytes: 1 << 20,
	}
	e.handler = NewRouter(app, Options{
		Logger:      logger,
		CORSOrigins: []string{"http://localhost:5173"},
		RateLimiter: middleware.NewRateLimiter(1000),
		Sessions:    ident,
	})
	return e
}

func (e *env) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.DeviceHeader, deviceID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) signIn(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/v1/auth/google/start", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var start struct{ URL string }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &start))
	u, err := url.Parse(start.URL)
	require.NoError(t, err)

	form := url.Values{"id_token": {"google-id-token"}, "state": {u.Query().Get("state")}}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.DeviceHeader, deviceID)
	cb := httptest.NewRecorder()
	e.handler.ServeHTTP(cb, req)
	require.Equal(t, http.StatusOK, cb.Code, cb.Body.String())

	var session struct {
		Token   string
		Account studio.Account
	}
	require.NoError(t, json.Unmarshal(cb.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "Ada Lovelace", session.Account.Name)
	return session.Token
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return (&domain.Image{MimeType: "image/png", Data: buf.Bytes()}).DataURL()
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error struct {
			Code      string `json:"code"`
			SignInURL string `json:"sign_in_url"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code, body.Error.SignInURL
}

func TestHealthAndDocs(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/v1/healthz", nil, "").Code)

	rec := e.do(t, http.MethodGet, "/v1/openapi.json", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
}

func TestStudioFlowOverHTTP(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/studio/source", map[string]string{"image": pngDataURL(t)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var extracted struct {
		View     studio.View
		Fallback bool
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &extracted))
	assert.False(t, extracted.Fallback)
	assert.Equal(t, []string{"Low Key", "Film Grain"}, extracted.View.Selected)
	assert.Equal(t, deviceID, rec.Header().Get(middleware.DeviceHeader))

	rec = e.do(t, http.MethodPost, "/v1/studio/attributes/toggle", map[string]string{"attribute": "Sepia"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/studio/target", map[string]string{"image": pngDataURL(t)}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/studio/apply", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var applied struct {
		View     studio.View
		Rendered bool
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &applied))
	assert.True(t, applied.Rendered)
	assert.Equal(t, studio.StageResultReady, applied.View.Stage)

	rec = e.do(t, http.MethodPost, "/v1/studio/chat", map[string]string{"instruction": "warmer"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var chat struct{ View studio.View }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	assert.Equal(t, "No modification returned.", chat.View.Transcript[len(chat.View.Transcript)-1].Text)

	rec = e.do(t, http.MethodGet, "/v1/studio/download", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "PromptArchitect-")
	assert.Equal(t, "styled", rec.Body.String())

	rec = e.do(t, http.MethodGet, "/v1/studio/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
}

func TestPublishRequiresSignIn(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPut, "/v1/studio/prompt", map[string]string{"text": "neon noir"}, "")

	rec := e.do(t, http.MethodPost, "/v1/studio/publish", map[string]any{"title": "Night", "public": true}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	code, hint := errorCode(t, rec)
	assert.Equal(t, "auth_required", code)
	assert.Equal(t, "/v1/auth/google/start", hint)

	rec = e.do(t, http.MethodPost, "/v1/prompts/p-1/like", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignedInLifecycle(t *testing.T) {
	e := newEnv(t)
	token := e.signIn(t)

	rec := e.do(t, http.MethodGet, "/v1/auth/session", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID)

	e.do(t, http.MethodPut, "/v1/studio/prompt", map[string]string{"text": "neon noir"}, token)

	rec = e.do(t, http.MethodPost, "/v1/studio/publish", map[string]any{"title": "  ", "public": true}, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/studio/publish", map[string]any{"title": "Night", "public": true}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var published struct {
		ID   string
		View studio.View
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &published))
	require.Len(t, published.View.Community, 1)
	assert.Equal(t, "Ada Lovelace", published.View.Community[0].Author)

	rec = e.do(t, http.MethodPost, "/v1/prompts/"+published.ID+"/like", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var liked studio.LikeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &liked))
	assert.True(t, liked.Liked)
	assert.Equal(t, 1, liked.Likes)

	rec = e.do(t, http.MethodPatch, "/v1/prompts/"+published.ID, map[string]string{"name": "Night Two"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodDelete, "/v1/prompts/"+published.ID, nil, token)
	require.Equal(t, http.StatusPreconditionRequired, rec.Code)

	rec = e.do(t, http.MethodDelete, "/v1/prompts/"+published.ID+"?confirm=true", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/v1/auth/signout", nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, "/v1/prompts/library", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteOthersPromptIsForbidden(t *testing.T) {
	e := newEnv(t, domain.Prompt{ID: "theirs", UserID: "someone-else", Visibility: domain.VisibilityPublic})
	token := e.signIn(t)
	rec := e.do(t, http.MethodDelete, "/v1/prompts/theirs?confirm=true", nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLikeFailureIsReverted(t *testing.T) {
	e := newEnv(t, domain.Prompt{ID: "pub", UserID: "someone-else", Visibility: domain.VisibilityPublic, Likes: 3})
	token := e.signIn(t)
	e.repo.failAdjust = true

	rec := e.do(t, http.MethodPost, "/v1/prompts/pub/like", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res studio.LikeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Reverted)
	assert.False(t, res.Liked)
	assert.Equal(t, 3, res.Likes)
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t)
	e.style.synthErr = fmt.Errorf("%w: quota exhausted", domain.ErrAIFailure)
	rec := e.do(t, http.MethodPost, "/v1/studio/synthesize", map[string]string{"prompt": "x", "resolution": "2K"}, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	e.repo.failList = true
	rec = e.do(t, http.MethodGet, "/v1/prompts/community", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = e.do(t, http.MethodPut, "/v1/studio/resolution", map[string]string{"resolution": "8K"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/auth/myspace/start", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestThemePreference(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/v1/preferences/theme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"theme":"dark"}`, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/v1/preferences/theme", map[string]string{"theme": "light"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, "/v1/preferences/theme", nil, "")
	assert.JSONEq(t, `{"theme":"light"}`, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/v1/preferences/theme", map[string]string{"theme": "sepia"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
