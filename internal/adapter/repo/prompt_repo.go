package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/infra"
	"promptarchitect/internal/sqlinline"
)

// PromptRepositoryPG implements domain.PromptRepository backed by PostgreSQL.
// Every mutation is filtered by owner; a filter that matches nothing is
// reported as domain.ErrPermissionDenied.
type PromptRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPromptRepository creates a new PromptRepositoryPG.
func NewPromptRepository(sql infra.SQLExecutor) *PromptRepositoryPG {
	return &PromptRepositoryPG{sql: sql}
}

// ListCommunity returns every public prompt, most liked first.
func (r *PromptRepositoryPG) ListCommunity(ctx context.Context) ([]domain.Prompt, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectCommunityPrompts)
	if err != nil {
		return nil, fmt.Errorf("list community prompts: %w", err)
	}
	return collectPrompts(rows)
}

// ListLibrary returns the prompts owned by userID, newest first.
func (r *PromptRepositoryPG) ListLibrary(ctx context.Context, userID string) ([]domain.Prompt, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectLibraryPrompts, userID)
	if err != nil {
		return nil, fmt.Errorf("list library prompts: %w", err)
	}
	return collectPrompts(rows)
}

// Insert stores a new prompt with zero likes and returns its id.
func (r *PromptRepositoryPG) Insert(ctx context.Context, p domain.NewPrompt) (string, error) {
	if _, err := uuid.Parse(p.UserID); err != nil {
		return "", fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}
	attrs := p.Attributes
	if attrs == nil {
		attrs = []string{}
	}
	var id string
	err := r.sql.QueryRow(ctx, sqlinline.QInsertPrompt,
		p.UserID,
		p.Name,
		p.Text,
		p.SourceImageURL,
		attrs,
		p.Visibility == domain.VisibilityPublic,
		p.Author,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert prompt: %w", err)
	}
	return id, nil
}

// Update applies the non-nil fields of patch to a prompt owned by userID.
func (r *PromptRepositoryPG) Update(ctx context.Context, id, userID string, patch domain.PromptPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	if !validIDs(id, userID) {
		return domain.ErrPermissionDenied
	}

	query, args, err := buildPromptUpdate(id, userID, patch)
	if err != nil {
		return fmt.Errorf("build prompt update: %w", err)
	}
	tag, err := r.sql.Exec(ctx, infra.WithMarker(sqlinline.MarkUpdatePrompt, query), args...)
	if err != nil {
		return fmt.Errorf("update prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPermissionDenied
	}
	return nil
}

// Delete removes a prompt owned by userID.
func (r *PromptRepositoryPG) Delete(ctx context.Context, id, userID string) error {
	if !validIDs(id, userID) {
		return domain.ErrPermissionDenied
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeletePrompt, id, userID)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPermissionDenied
	}
	return nil
}

// AdjustLikes adds delta to a public prompt's counter and returns the stored
// value. The database clamps at zero so concurrent unlikes cannot go negative.
func (r *PromptRepositoryPG) AdjustLikes(ctx context.Context, id string, delta int) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, domain.ErrNotFound
	}
	var likes int
	if err := r.sql.QueryRow(ctx, sqlinline.QAdjustPromptLikes, id, delta).Scan(&likes); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("adjust prompt likes: %w", err)
	}
	return likes, nil
}

func buildPromptUpdate(id, userID string, patch domain.PromptPatch) (string, []any, error) {
	b := sq.Update("prompts").PlaceholderFormat(sq.Dollar)
	if patch.Name != nil {
		b = b.Set("name", *patch.Name)
	}
	if patch.Text != nil {
		b = b.Set("text", *patch.Text)
	}
	if patch.Attributes != nil {
		b = b.Set("attributes", patch.Attributes)
	}
	return b.
		Where("id = ?::uuid", id).
		Where("user_id = ?::uuid", userID).
		ToSql()
}

func collectPrompts(rows pgx.Rows) ([]domain.Prompt, error) {
	defer rows.Close()
	prompts := make([]domain.Prompt, 0)
	for rows.Next() {
		var (
			p      domain.Prompt
			public bool
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Text, &p.SourceImageURL, &p.Attributes, &p.Likes, &public, &p.Author, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		p.Visibility = domain.VisibilityPrivate
		if public {
			p.Visibility = domain.VisibilityPublic
		}
		p.Likes = domain.ClampLikes(p.Likes)
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	return prompts, nil
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

var _ domain.PromptRepository = (*PromptRepositoryPG)(nil)
