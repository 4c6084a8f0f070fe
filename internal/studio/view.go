package studio

import (
	"fmt"
	"slices"
	"strings"

	"promptarchitect/internal/domain"
	"promptarchitect/pkg/zip"
)

// Account is the signed-in identity shown to the client.
type Account struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// CommunityPrompt is a public prompt with this device's like flag.
type CommunityPrompt struct {
	domain.Prompt
	Liked bool `json:"liked"`
}

// View is a point-in-time snapshot of one device's studio.
type View struct {
	DeviceID    string            `json:"device_id"`
	Stage       Stage             `json:"stage"`
	Prompt      string            `json:"prompt"`
	Attributes  []string          `json:"attributes"`
	Selected    []string          `json:"selected"`
	SourceImage string            `json:"source_image,omitempty"`
	TargetImage string            `json:"target_image,omitempty"`
	ResultImage string            `json:"result_image,omitempty"`
	Transcript  []Message         `json:"transcript"`
	Resolution  domain.Resolution `json:"resolution"`
	Adjustments Adjustments       `json:"adjustments"`
	InFlight    []string          `json:"in_flight"`
	Account     *Account          `json:"account,omitempty"`
	Community   []CommunityPrompt `json:"community"`
	Library     []domain.Prompt   `json:"library"`
}

// View returns a copy of the current state.
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		DeviceID:    c.deviceID,
		Stage:       c.d.stage(c.renderingLocked()),
		Prompt:      c.d.prompt,
		Attributes:  nonNil(c.d.extracted),
		Selected:    nonNil(c.d.selected),
		SourceImage: c.d.sourceURL,
		TargetImage: c.d.target.DataURL(),
		ResultImage: c.d.result.DataURL(),
		Transcript:  append([]Message{}, c.d.transcript...),
		Resolution:  c.d.resolution,
		Adjustments: c.d.adjustments,
		InFlight:    c.inflightLocked(),
		Community:   make([]CommunityPrompt, 0, len(c.community)),
		Library:     append([]domain.Prompt{}, c.library...),
	}
	if c.d.source != nil {
		v.SourceImage = c.d.source.DataURL()
	}
	if s := c.session; s != nil {
		v.Account = &Account{
			ID:        s.User.ID,
			Provider:  string(s.User.Provider),
			Email:     s.User.Email,
			Name:      domain.AuthorName(s.User),
			AvatarURL: s.User.AvatarURL,
		}
	}
	for _, p := range c.community {
		_, liked := c.liked[p.ID]
		v.Community = append(v.Community, CommunityPrompt{Prompt: p, Liked: liked})
	}
	return v
}

// ViewAs is View as seen by sess. The account and library belong to whoever
// is bound to the device, so they are blanked for any other caller.
func (c *Coordinator) ViewAs(sess *domain.Session) View {
	v := c.View()
	if v.Account == nil || sess == nil || v.Account.ID != sess.User.ID {
		v.Account = nil
		v.Library = []domain.Prompt{}
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// Export bundles the draft into a zip: the current image (if any), the prompt
// text and one attribute per line.
func (c *Coordinator) Export() (string, []byte, error) {
	c.mu.Lock()
	prompt := strings.TrimSpace(c.d.prompt)
	attrs := c.d.publishAttributes()
	img := c.d.renderBase()
	if img == nil {
		img = c.d.source
	}
	c.mu.Unlock()

	if prompt == "" {
		return "", nil, fmt.Errorf("%w: nothing to export", domain.ErrValidation)
	}
	now := c.deps.Now()
	assets := make([]zip.Asset, 0, 3)
	if img != nil {
		assets = append(assets, zip.Asset{Filename: "image" + imageExtension(img.MimeType), Data: img.Data})
	}
	assets = append(assets,
		zip.Asset{Filename: "prompt.txt", Data: []byte(prompt + "\n")},
		zip.Asset{Filename: "attributes.txt", Data: []byte(strings.Join(attrs, "\n") + "\n")},
	)
	data, err := zip.ArchiveAssets(assets, now)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("PromptArchitect-%d.zip", now.UnixMilli()), data, nil
}

func imageExtension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	default:
		return ".png"
	}
}
