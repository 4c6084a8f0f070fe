package domain

import "context"

// ExtractionKind tags how an extraction result was obtained.
type ExtractionKind string

const (
	ExtractionParsed   ExtractionKind = "parsed"
	ExtractionFallback ExtractionKind = "fallback"
)

// Fallback texts used when the AI response cannot be parsed.
const (
	FallbackPromptEmpty  = "No prompt generated."
	FallbackPromptFailed = "Failed to analyze."
)

// DefaultAttributes is the attribute set attached to fallback extractions.
var DefaultAttributes = []string{"Cinematic Lighting", "Natural Vibe", "Subject Focus"}

// Extraction is the style DNA read from an image. Prompt is never empty.
// Cause is set on fallback results that stem from a failed call.
type Extraction struct {
	Kind       ExtractionKind
	Prompt     string
	Attributes []string
	Cause      error
}

// IsFallback reports whether the result came from the fallback path.
func (e Extraction) IsFallback() bool {
	return e.Kind == ExtractionFallback
}

// FallbackExtraction builds the degraded result for raw text.
func FallbackExtraction(raw string, cause error) Extraction {
	if raw == "" {
		raw = FallbackPromptFailed
	}
	return Extraction{
		Kind:       ExtractionFallback,
		Prompt:     raw,
		Attributes: append([]string(nil), DefaultAttributes...),
		Cause:      cause,
	}
}

// StyleService is the generative AI capability behind the studio. Image
// returning methods yield (nil, nil) when the service answers without an image.
type StyleService interface {
	ExtractStyle(ctx context.Context, img *Image) Extraction
	Synthesize(ctx context.Context, prompt string, res Resolution) (*Image, error)
	ApplyStyle(ctx context.Context, target *Image, prompt string, focus []string) (*Image, error)
	Edit(ctx context.Context, base *Image, instruction string) (*Image, error)
}
