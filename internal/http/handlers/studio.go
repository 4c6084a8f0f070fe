package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/middleware"
	"promptarchitect/internal/studio"
)

type imageRequest struct {
	Image string `json:"image" validate:"required"`
}

type promptTextRequest struct {
	Text string `json:"text"`
}

type attributeRequest struct {
	Attribute string `json:"attribute" validate:"required"`
}

type resolutionRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=low medium high 1K 2K 4K 1k 2k 4k"`
}

type synthesizeRequest struct {
	Prompt     string `json:"prompt"`
	Resolution string `json:"resolution" validate:"omitempty,oneof=low medium high 1K 2K 4K 1k 2k 4k"`
}

type chatRequest struct {
	Instruction string `json:"instruction" validate:"required,max=2000"`
}

type publishRequest struct {
	Title  string `json:"title" validate:"max=120"`
	Public bool   `json:"public"`
}

type extractResponse struct {
	View     studio.View `json:"view"`
	Fallback bool        `json:"fallback"`
}

type renderResponse struct {
	View     studio.View `json:"view"`
	Rendered bool        `json:"rendered"`
}

type chatResponse struct {
	View   studio.View `json:"view"`
	Failed bool        `json:"failed"`
}

type publishResponse struct {
	ID   string      `json:"id"`
	View studio.View `json:"view"`
}

// StudioView returns the device's current draft and lists.
func (a *App) StudioView(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.view(c, r))
}

// readImage accepts a multipart "image" file or a JSON data URL.
func (a *App) readImage(w http.ResponseWriter, r *http.Request) (*domain.Image, error) {
	if a.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, uploadError(err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, uploadError(err)
		}
		return studio.DecodeImage(data)
	}
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, uploadError(err)
	}
	if err := a.Validator.Validate(req); err != nil {
		return nil, err
	}
	return studio.DecodeDataURL(req.Image)
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: image exceeds %d bytes", domain.ErrValidation, tooLarge.Limit)
	}
	return fmt.Errorf("%w: invalid upload: %v", domain.ErrValidation, err)
}

// LoadSource uploads the source image and extracts its style.
func (a *App) LoadSource(w http.ResponseWriter, r *http.Request) {
	img, err := a.readImage(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ctx, cancel := a.aiContext(r)
	defer cancel()
	ext, err := c.ExtractStyle(ctx, img)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, extractResponse{View: a.view(c, r), Fallback: ext.IsFallback()})
}

// LoadTarget uploads the identity photo.
func (a *App) LoadTarget(w http.ResponseWriter, r *http.Request) {
	img, err := a.readImage(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ctx := studio.WithLocale(r.Context(), localeOf(r))
	if err := c.LoadTarget(ctx, img); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.view(c, r))
}

// SetPrompt replaces the draft prompt text.
func (a *App) SetPrompt(w http.ResponseWriter, r *http.Request) {
	var req promptTextRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c.SetPromptText(req.Text)
	a.json(w, http.StatusOK, a.view(c, r))
}

func (a *App) ToggleAttribute(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := c.ToggleAttribute(req.Attribute); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.view(c, r))
}

func (a *App) SetResolution(w http.ResponseWriter, r *http.Request) {
	var req resolutionRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, _ := domain.ParseResolution(req.Resolution)
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c.SetResolution(res)
	a.json(w, http.StatusOK, a.view(c, r))
}

func (a *App) SetAdjustments(w http.ResponseWriter, r *http.Request) {
	var req studio.Adjustments
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := c.SetAdjustments(req); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.view(c, r))
}

// Synthesize renders an image from a prompt, defaulting to the draft's.
func (a *App) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, _ := domain.ParseResolution(req.Resolution)
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ctx, cancel := a.aiContext(r)
	defer cancel()
	img, err := c.Synthesize(ctx, req.Prompt, res)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, renderResponse{View: a.view(c, r), Rendered: img != nil})
}

// ApplyStyle restyles the target with the draft prompt.
func (a *App) ApplyStyle(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ctx, cancel := a.aiContext(r)
	defer cancel()
	img, err := c.ApplyStyle(ctx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, renderResponse{View: a.view(c, r), Rendered: img != nil})
}

// Chat runs one refinement turn.
func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ctx, cancel := a.aiContext(r)
	defer cancel()
	out, err := c.ChatRefine(ctx, req.Instruction)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, chatResponse{View: a.view(c, r), Failed: out.Failed})
}

// Publish saves the draft to the library or the community feed.
func (a *App) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	id, err := c.Publish(r.Context(), middleware.SessionFromContext(r.Context()), req.Title, req.Public)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, publishResponse{ID: id, View: a.view(c, r)})
}

// Adopt loads a listed prompt into the draft.
func (a *App) Adopt(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := c.Adopt(promptID(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.view(c, r))
}

// Download streams the current image as an attachment.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	name, img, err := c.Download()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	attachment(w, name, img.MimeType, img.Data)
}

// Export streams the draft bundle as a zip.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	c, err := a.coordinator(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	name, data, err := c.Export()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	attachment(w, name, "application/zip", data)
}

func attachment(w http.ResponseWriter, name, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
