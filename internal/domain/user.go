package domain

import "time"

// AuthProvider enumerates the supported sign-in providers.
type AuthProvider string

const (
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderGitHub AuthProvider = "github"
)

// ParseAuthProvider returns the provider for name, if supported.
func ParseAuthProvider(name string) (AuthProvider, bool) {
	switch AuthProvider(name) {
	case AuthProviderGoogle:
		return AuthProviderGoogle, true
	case AuthProviderGitHub:
		return AuthProviderGitHub, true
	default:
		return "", false
	}
}

// User represents an authenticated account within the platform.
type User struct {
	ID         string
	Provider   AuthProvider
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExternalIdentity is what a provider vouches for after a successful sign-in.
type ExternalIdentity struct {
	Provider   AuthProvider
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
}
