package studio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"promptarchitect/internal/domain"
)

// MaxImageEdge rejects uploads whose longest side exceeds this many pixels.
const MaxImageEdge = 8192

// DecodeImage validates an uploaded raster and tags it with the mime type of
// its actual format. Only the header is decoded.
func DecodeImage(data []byte) (*domain.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrValidation)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported image: %v", domain.ErrValidation, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImageEdge || cfg.Height > MaxImageEdge {
		return nil, fmt.Errorf("%w: image dimensions %dx%d out of range", domain.ErrValidation, cfg.Width, cfg.Height)
	}
	return &domain.Image{MimeType: "image/" + format, Data: data}, nil
}

// DecodeDataURL parses an inline data URL (or bare base64 payload) and then
// validates it like an upload.
func DecodeDataURL(raw string) (*domain.Image, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: image is required", domain.ErrValidation)
	}
	img, err := domain.ParseDataURL(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return DecodeImage(img.Data)
}
