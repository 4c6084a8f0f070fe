package domain

import "context"

// UserRepository defines access methods for users.
type UserRepository interface {
	UpsertExternal(ctx context.Context, identity ExternalIdentity) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// PromptRepository is the persistence contract for prompts. Update and Delete
// report ErrPermissionDenied when the (id, owner) filter matches no row.
type PromptRepository interface {
	ListCommunity(ctx context.Context) ([]Prompt, error)
	ListLibrary(ctx context.Context, userID string) ([]Prompt, error)
	Insert(ctx context.Context, p NewPrompt) (string, error)
	Update(ctx context.Context, id, userID string, patch PromptPatch) error
	Delete(ctx context.Context, id, userID string) error
	AdjustLikes(ctx context.Context, id string, delta int) (int, error)
}
