package style

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/providers/genai"
)

type fakeGenerator struct {
	resp *genai.Response
	err  error
	reqs []genai.Request
}

func (f *fakeGenerator) GenerateContent(_ context.Context, req genai.Request) (*genai.Response, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

var photo = &domain.Image{MimeType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

func newGateway(gen Generator) *Gateway {
	return NewGateway(gen, Options{TextModel: "text-m", ImageModel: "image-m", Logger: zerolog.Nop()})
}

func TestExtractStyleRequestsSchema(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.Response{Text: `{"prompt":"cinematic portrait","attributes":["A","B","C","D","E","F","G","H"]}`}}
	got := newGateway(gen).ExtractStyle(context.Background(), photo)

	if got.IsFallback() || got.Prompt != "cinematic portrait" || len(got.Attributes) != 8 {
		t.Fatalf("unexpected extraction %+v", got)
	}
	req := gen.reqs[0]
	if req.Model != "text-m" || req.ResponseSchema == nil {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Parts[0].Image != photo {
		t.Fatal("image part should carry the uploaded photo")
	}
}

func TestExtractStyleTransportErrorFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection reset")}
	got := newGateway(gen).ExtractStyle(context.Background(), photo)

	if !got.IsFallback() || got.Prompt != domain.FallbackPromptFailed {
		t.Fatalf("unexpected extraction %+v", got)
	}
	if !errors.Is(got.Cause, domain.ErrAIFailure) {
		t.Fatalf("Cause = %v, want ErrAIFailure", got.Cause)
	}
}

func TestSynthesizeUsesTierAndSquareAspect(t *testing.T) {
	out := domain.Image{MimeType: "image/png", Data: []byte("png")}
	gen := &fakeGenerator{resp: &genai.Response{Images: []domain.Image{out}}}

	img, err := newGateway(gen).Synthesize(context.Background(), "neon city", domain.ResolutionHigh)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if img == nil || string(img.Data) != "png" {
		t.Fatalf("unexpected image %+v", img)
	}
	cfg := gen.reqs[0].ImageConfig
	if cfg == nil || cfg.AspectRatio != "1:1" || cfg.ImageSize != "4K" || gen.reqs[0].Model != "image-m" {
		t.Fatalf("unexpected request %+v", gen.reqs[0])
	}
}

func TestSynthesizeWithoutImageIsNil(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.Response{Text: "I cannot draw that"}}
	img, err := newGateway(gen).Synthesize(context.Background(), "x", domain.ResolutionLow)
	if err != nil || img != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", img, err)
	}
}

func TestSynthesizeBlankPromptSkipsCall(t *testing.T) {
	gen := &fakeGenerator{}
	if _, err := newGateway(gen).Synthesize(context.Background(), "  ", domain.ResolutionLow); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if len(gen.reqs) != 0 {
		t.Fatal("no AI call expected")
	}
}

func TestApplyStyleAndEditWrapErrors(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("503")}
	g := newGateway(gen)
	if _, err := g.ApplyStyle(context.Background(), photo, "noir", nil); !errors.Is(err, domain.ErrAIFailure) {
		t.Fatalf("ApplyStyle err = %v", err)
	}
	if _, err := g.Edit(context.Background(), photo, "make it rain"); !errors.Is(err, domain.ErrAIFailure) {
		t.Fatalf("Edit err = %v", err)
	}
	if !strings.Contains(gen.reqs[1].Parts[1].Text, "make it rain") {
		t.Fatalf("edit instruction missing user text: %q", gen.reqs[1].Parts[1].Text)
	}
}
