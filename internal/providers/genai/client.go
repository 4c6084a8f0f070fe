// Package genai is a small REST client for the Gemini generateContent API.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/infra"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoAPIKey is returned for text generation when no key is configured.
var ErrNoAPIKey = errors.New("genai: no api key configured")

// KeySource looks up an API key at call time, e.g. from integration_tokens.
type KeySource func(ctx context.Context) (string, error)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	KeySource  KeySource
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client issues generateContent calls. With no key available image requests
// are answered with deterministic synthetic PNGs so local setups keep working.
type Client struct {
	apiKey     string
	keySource  KeySource
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// Part is one element of a request: text or inline bytes.
type Part struct {
	Text  string
	Image *domain.Image
}

// TextPart builds a text part.
func TextPart(s string) Part { return Part{Text: s} }

// ImagePart builds an inline image part.
func ImagePart(img *domain.Image) Part { return Part{Image: img} }

// Schema is the subset of the OpenAPI schema Gemini accepts for structured output.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// ImageConfig controls synthesized image geometry.
type ImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

// Request is a single-turn generateContent call.
type Request struct {
	Model          string
	Parts          []Part
	ResponseSchema *Schema
	ImageConfig    *ImageConfig
	// WantImage asks for IMAGE in the response modalities.
	WantImage bool
	// RequestID is only used for logging and synthetic seeding.
	RequestID string
}

// Response is the flattened first candidate.
type Response struct {
	Text      string
	Images    []domain.Image
	Synthetic bool
}

// FirstImage returns the first inline image or nil.
func (r *Response) FirstImage() *domain.Image {
	if r == nil || len(r.Images) == 0 {
		return nil
	}
	img := r.Images[0]
	return &img
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int          `json:"candidateCount,omitempty"`
	ResponseMimeType   string       `json:"responseMimeType,omitempty"`
	ResponseSchema     *Schema      `json:"responseSchema,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *ImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client. A nil HTTP client gets a 60s timeout.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	logger := opts.Logger
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		keySource:  opts.KeySource,
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}
}

// GenerateContent sends req and flattens the first candidate.
func (c *Client) GenerateContent(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, errors.New("genai: model is required")
	}

	key := c.resolveKey(ctx)
	if key == "" {
		if req.WantImage {
			return c.synthetic(req), nil
		}
		return nil, ErrNoAPIKey
	}

	payload := geminiGenerateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: encodeParts(req.Parts)}},
		GenerationConfig: &geminiGenerationConfig{CandidateCount: 1},
	}
	if req.ResponseSchema != nil {
		payload.GenerationConfig.ResponseMimeType = "application/json"
		payload.GenerationConfig.ResponseSchema = req.ResponseSchema
	}
	if req.WantImage {
		payload.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
		payload.GenerationConfig.ImageConfig = req.ImageConfig
	}

	var out geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(req.Model))
	if err := c.invokeGemini(ctx, key, path, payload, &out); err != nil {
		return nil, err
	}

	resp := &Response{}
	if len(out.Candidates) == 0 {
		return resp, nil
	}
	var text strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		img, err := decodeInline(part)
		if err != nil {
			c.logger.Warn().Err(err).Str("model", req.Model).Msg("genai: skipping undecodable inline part")
			continue
		}
		if img != nil {
			resp.Images = append(resp.Images, *img)
		}
	}
	resp.Text = text.String()

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", req.Model).
		Int("images", len(resp.Images)).
		Int("text_len", len(resp.Text)).
		Msg("genai: generate content")
	return resp, nil
}

func (c *Client) resolveKey(ctx context.Context) string {
	if c.apiKey != "" {
		return c.apiKey
	}
	if c.keySource == nil {
		return ""
	}
	key, err := c.keySource(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("genai: api key lookup failed")
		return ""
	}
	return strings.TrimSpace(key)
}

func (c *Client) synthetic(req Request) *Response {
	size := 1024
	if req.ImageConfig != nil {
		size = syntheticEdge(req.ImageConfig.ImageSize)
	}
	var prompt strings.Builder
	var seedParts []any
	for _, p := range req.Parts {
		prompt.WriteString(p.Text)
		if p.Image != nil {
			seedParts = append(seedParts, len(p.Image.Data))
		}
	}
	seed := deterministicSeed(append([]any{req.Model, prompt.String()}, seedParts...)...)
	data := renderSyntheticImage(size, size, seed)

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", req.Model).
		Msg("genai: no api key, returning synthetic image")

	return &Response{
		Images:    []domain.Image{{MimeType: "image/png", Data: data}},
		Synthetic: true,
	}
}

func encodeParts(parts []Part) []geminiPart {
	out := make([]geminiPart, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Image != nil && len(p.Image.Data) > 0:
			mime := p.Image.MimeType
			if mime == "" {
				mime = http.DetectContentType(p.Image.Data)
			}
			out = append(out, geminiPart{InlineData: &geminiInlineData{
				MimeType: mime,
				Data:     base64.StdEncoding.EncodeToString(p.Image.Data),
			}})
		case strings.TrimSpace(p.Text) != "":
			out = append(out, geminiPart{Text: p.Text})
		}
	}
	return out
}

func decodeInline(part geminiPart) (*domain.Image, error) {
	if part.InlineData == nil || part.InlineData.Data == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
	if err != nil {
		return nil, fmt.Errorf("decode inline data: %w", err)
	}
	mime := part.InlineData.MimeType
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return &domain.Image{MimeType: mime, Data: data}, nil
}

func (c *Client) invokeGemini(ctx context.Context, key, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
