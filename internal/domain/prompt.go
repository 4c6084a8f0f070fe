package domain

import (
	"strings"
	"time"
)

// MaxAttributes bounds the attribute tags kept on a prompt.
const MaxAttributes = 8

// Visibility separates library-scoped prompts from community-scoped ones.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Prompt is a saved style description owned by a single user.
type Prompt struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	Text           string     `json:"text"`
	SourceImageURL string     `json:"source_image_url,omitempty"`
	Attributes     []string   `json:"attributes,omitempty"`
	Likes          int        `json:"likes"`
	Visibility     Visibility `json:"visibility"`
	Author         string     `json:"author"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsPublic reports whether the prompt belongs to the community feed.
func (p Prompt) IsPublic() bool {
	return p.Visibility == VisibilityPublic
}

// OwnedBy reports whether userID owns the prompt.
func (p Prompt) OwnedBy(userID string) bool {
	return userID != "" && p.UserID == userID
}

// NewPrompt carries the fields of a prompt about to be inserted.
type NewPrompt struct {
	UserID         string
	Name           string
	Text           string
	SourceImageURL string
	Attributes     []string
	Visibility     Visibility
	Author         string
}

// PromptPatch is an owner-scoped partial update. Nil fields are left untouched.
type PromptPatch struct {
	Name       *string
	Text       *string
	Attributes []string
}

// IsEmpty reports whether the patch carries no change.
func (p PromptPatch) IsEmpty() bool {
	return p.Name == nil && p.Text == nil && p.Attributes == nil
}

// ClampLikes never lets a like counter fall below zero.
func ClampLikes(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// AuthorName derives the denormalized display name stored on public prompts.
func AuthorName(u User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if email := strings.TrimSpace(u.Email); email != "" {
		if at := strings.Index(email, "@"); at > 0 {
			return email[:at]
		}
		return email
	}
	return DefaultAuthor
}

const (
	// DefaultAuthor is used when the user profile carries no usable name.
	DefaultAuthor = "Architect"
	// LibraryAuthor labels private library entries.
	LibraryAuthor = "You"
)
