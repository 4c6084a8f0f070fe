// Package style implements domain.StyleService on top of the Gemini client.
package style

import (
	"context"
	"fmt"
	"strings"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/infra"
	"promptarchitect/internal/providers/genai"
)

// Generator is the slice of genai.Client the gateway needs.
type Generator interface {
	GenerateContent(ctx context.Context, req genai.Request) (*genai.Response, error)
}

// Options configures the gateway's models.
type Options struct {
	TextModel  string
	ImageModel string
	Logger     infra.Logger
}

type Gateway struct {
	gen        Generator
	textModel  string
	imageModel string
	logger     infra.Logger
}

func NewGateway(gen Generator, opts Options) *Gateway {
	return &Gateway{
		gen:        gen,
		textModel:  coalesce(opts.TextModel, "gemini-2.5-flash"),
		imageModel: coalesce(opts.ImageModel, "gemini-2.5-flash-image"),
		logger:     opts.Logger,
	}
}

var extractionSchema = &genai.Schema{
	Type: "OBJECT",
	Properties: map[string]*genai.Schema{
		"prompt": {
			Type:        "STRING",
			Description: "Detailed description of the image's artistic style.",
		},
		"attributes": {
			Type:        "ARRAY",
			Items:       &genai.Schema{Type: "STRING"},
			Description: "List of 8 specific, tangible visual features.",
		},
	},
	Required: []string{"prompt", "attributes"},
}

// ExtractStyle never fails: call errors and malformed output both degrade to
// a fallback extraction.
func (g *Gateway) ExtractStyle(ctx context.Context, img *domain.Image) domain.Extraction {
	if img.IsZero() {
		return domain.FallbackExtraction("", fmt.Errorf("%w: empty image", domain.ErrValidation))
	}
	resp, err := g.gen.GenerateContent(ctx, genai.Request{
		Model:          g.textModel,
		Parts:          []genai.Part{genai.ImagePart(img), genai.TextPart(extractInstruction)},
		ResponseSchema: extractionSchema,
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("model", g.textModel).Msg("style: extraction failed; using fallback")
		return domain.FallbackExtraction("", fmt.Errorf("%w: %v", domain.ErrAIFailure, err))
	}
	result := parseExtraction(resp.Text)
	if result.IsFallback() {
		g.logger.Warn().Int("text_len", len(resp.Text)).Msg("style: unparseable extraction; using fallback")
	}
	return result
}

// Synthesize renders prompt as a square image at the tier's size.
func (g *Gateway) Synthesize(ctx context.Context, prompt string, res domain.Resolution) (*domain.Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	return g.image(ctx, genai.Request{
		Model:       g.imageModel,
		Parts:       []genai.Part{genai.TextPart(prompt)},
		ImageConfig: &genai.ImageConfig{AspectRatio: "1:1", ImageSize: res.ImageSize()},
		WantImage:   true,
	})
}

// ApplyStyle restyles target with prompt, emphasizing focus when non-empty.
func (g *Gateway) ApplyStyle(ctx context.Context, target *domain.Image, prompt string, focus []string) (*domain.Image, error) {
	if target.IsZero() {
		return nil, fmt.Errorf("%w: target image is required", domain.ErrValidation)
	}
	return g.image(ctx, genai.Request{
		Model:     g.imageModel,
		Parts:     []genai.Part{genai.ImagePart(target), genai.TextPart(BuildApplyInstruction(prompt, focus))},
		WantImage: true,
	})
}

// Edit applies a free-form instruction to base under the subject lock.
func (g *Gateway) Edit(ctx context.Context, base *domain.Image, instruction string) (*domain.Image, error) {
	if base.IsZero() {
		return nil, fmt.Errorf("%w: base image is required", domain.ErrValidation)
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("%w: instruction is required", domain.ErrValidation)
	}
	return g.image(ctx, genai.Request{
		Model:     g.imageModel,
		Parts:     []genai.Part{genai.ImagePart(base), genai.TextPart(BuildEditInstruction(instruction))},
		WantImage: true,
	})
}

func (g *Gateway) image(ctx context.Context, req genai.Request) (*domain.Image, error) {
	resp, err := g.gen.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAIFailure, err)
	}
	img := resp.FirstImage()
	if img == nil {
		g.logger.Info().Str("model", req.Model).Msg("style: response carried no image")
	}
	return img, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var _ domain.StyleService = (*Gateway)(nil)
