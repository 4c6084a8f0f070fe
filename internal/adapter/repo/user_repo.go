package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/infra"
	"promptarchitect/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// UpsertExternal creates the account on first sign-in and refreshes the
// profile fields on later ones. Blank incoming fields keep the stored values.
func (r *UserRepositoryPG) UpsertExternal(ctx context.Context, identity domain.ExternalIdentity) (*domain.User, error) {
	if identity.Provider == "" || strings.TrimSpace(identity.ExternalID) == "" {
		return nil, fmt.Errorf("%w: provider and external id are required", domain.ErrValidation)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertExternalUser,
		string(identity.Provider),
		strings.TrimSpace(identity.ExternalID),
		strings.TrimSpace(identity.Email),
		strings.TrimSpace(identity.Name),
		strings.TrimSpace(identity.AvatarURL),
	)
	return scanUser(row)
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u        domain.User
		provider string
	)
	if err := row.Scan(&u.ID, &provider, &u.ExternalID, &u.Email, &u.Name, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Provider = domain.AuthProvider(provider)
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
