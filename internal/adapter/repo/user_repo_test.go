package repo

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/infra"
)

var userColumns = []string{"id", "provider", "external_id", "email", "name", "avatar_url", "created_at", "updated_at"}

func TestUpsertExternal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewUserRepository(infra.NewSQLRunner(mock, zerolog.Nop()))

	now := time.Now().UTC()
	mock.ExpectQuery("insert into users").
		WithArgs("github", "1234", "ada@example.com", "Ada", "").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(ownerID, "github", "1234", "ada@example.com", "Ada", "", now, now))

	u, err := repo.UpsertExternal(context.Background(), domain.ExternalIdentity{
		Provider:   domain.AuthProviderGitHub,
		ExternalID: " 1234 ",
		Email:      "ada@example.com",
		Name:       "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, ownerID, u.ID)
	assert.Equal(t, domain.AuthProviderGitHub, u.Provider)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertExternalRequiresIdentity(t *testing.T) {
	repo := NewUserRepository(nil)
	_, err := repo.UpsertExternal(context.Background(), domain.ExternalIdentity{Provider: domain.AuthProviderGoogle})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewUserRepository(infra.NewSQLRunner(mock, zerolog.Nop()))

	mock.ExpectQuery("from users").WithArgs(ownerID).WillReturnRows(pgxmock.NewRows(userColumns))
	_, err = repo.GetByID(context.Background(), ownerID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
