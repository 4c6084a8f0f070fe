package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Image is an in-memory raster payload exchanged with the AI service.
type Image struct {
	MimeType string
	Data     []byte
}

// IsZero reports whether the image carries no bytes.
func (i *Image) IsZero() bool {
	return i == nil || len(i.Data) == 0
}

// DataURL renders the image as an inline data URL.
func (i *Image) DataURL() string {
	if i.IsZero() {
		return ""
	}
	return "data:" + i.mime() + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

func (i *Image) mime() string {
	if i.MimeType != "" {
		return i.MimeType
	}
	return http.DetectContentType(i.Data)
}

// ErrNotDataURL is returned by ParseDataURL for inputs that are not base64 data URLs.
var ErrNotDataURL = errors.New("not a base64 data url")

// ParseDataURL decodes "data:<mime>;base64,<payload>". A bare base64 payload
// is also accepted and its type is sniffed.
func ParseDataURL(raw string) (*Image, error) {
	raw = strings.TrimSpace(raw)
	mime := ""
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		header, body, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, ErrNotDataURL
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	if len(data) == 0 {
		return nil, ErrNotDataURL
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return &Image{MimeType: mime, Data: data}, nil
}

// Resolution is the synthesis size tier.
type Resolution string

const (
	ResolutionLow    Resolution = "low"
	ResolutionMedium Resolution = "medium"
	ResolutionHigh   Resolution = "high"
)

// ParseResolution accepts either the tier name or its image size ("1K", "2K", "4K").
func ParseResolution(s string) (Resolution, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "1k":
		return ResolutionLow, true
	case "medium", "2k":
		return ResolutionMedium, true
	case "high", "4k":
		return ResolutionHigh, true
	}
	return "", false
}

// ImageSize maps the tier to the AI service's size label.
func (r Resolution) ImageSize() string {
	switch r {
	case ResolutionMedium:
		return "2K"
	case ResolutionHigh:
		return "4K"
	default:
		return "1K"
	}
}
