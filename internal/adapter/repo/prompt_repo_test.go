package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptarchitect/internal/domain"
	"promptarchitect/internal/infra"
)

const (
	ownerID  = "7b0c7e57-2d4e-4a0a-9f35-8f5b0f0f7a11"
	promptID = "c2d1a9f6-4f8e-4c1b-8c6e-3f7d2a9e0b55"
)

var promptColumns = []string{"id", "user_id", "name", "text", "source_image_url", "attributes", "likes", "is_public", "author", "created_at"}

func newMockRepo(t *testing.T) (*PromptRepositoryPG, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPromptRepository(infra.NewSQLRunner(mock, zerolog.Nop())), mock
}

func TestListCommunityMapsRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("from prompts p\\s+where p.is_public").
		WillReturnRows(pgxmock.NewRows(promptColumns).
			AddRow(promptID, ownerID, "Noir", "moody light", "", []string{"Noir"}, 3, true, "Ada", created))

	prompts, err := repo.ListCommunity(context.Background())
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, domain.VisibilityPublic, prompts[0].Visibility)
	assert.Equal(t, 3, prompts[0].Likes)
	assert.Equal(t, []string{"Noir"}, prompts[0].Attributes)
	assert.Equal(t, created, prompts[0].CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListLibraryRejectsInvalidUser(t *testing.T) {
	repo, _ := newMockRepo(t)
	_, err := repo.ListLibrary(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListLibraryQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("where p.user_id = \\$1::uuid").WithArgs(ownerID).WillReturnError(errors.New("conn reset"))

	_, err := repo.ListLibrary(context.Background(), ownerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list library prompts")
}

func TestInsertReturnsID(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("insert into prompts").
		WithArgs(ownerID, "Noir", "moody light", "", pgxmock.AnyArg(), true, "Ada").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(promptID))

	id, err := repo.Insert(context.Background(), domain.NewPrompt{
		UserID:     ownerID,
		Name:       "Noir",
		Text:       "moody light",
		Visibility: domain.VisibilityPublic,
		Author:     "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, promptID, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBuildsOwnerScopedStatement(t *testing.T) {
	repo, mock := newMockRepo(t)
	name := "Renamed"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE prompts SET name = $1 WHERE id = $2::uuid AND user_id = $3::uuid")).
		WithArgs(name, promptID, ownerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), promptID, ownerID, domain.PromptPatch{Name: &name}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateZeroRowsIsPermissionDenied(t *testing.T) {
	repo, mock := newMockRepo(t)
	text := "new text"
	mock.ExpectExec("UPDATE prompts SET text").WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), promptID, ownerID, domain.PromptPatch{Text: &text})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestUpdateEmptyPatchSkipsDatabase(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, repo.Update(context.Background(), promptID, ownerID, domain.PromptPatch{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	cases := []struct {
		name    string
		id      string
		rows    int64
		wantErr error
		query   bool
	}{
		{name: "owner deletes", id: promptID, rows: 1, query: true},
		{name: "foreign prompt", id: promptID, rows: 0, wantErr: domain.ErrPermissionDenied, query: true},
		{name: "malformed id", id: "x", wantErr: domain.ErrPermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			if tc.query {
				mock.ExpectExec("delete from prompts").
					WithArgs(tc.id, ownerID).
					WillReturnResult(pgxmock.NewResult("DELETE", tc.rows))
			}
			err := repo.Delete(context.Background(), tc.id, ownerID)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdjustLikes(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("greatest\\(likes \\+ \\$2::int, 0\\)").
		WithArgs(promptID, -1).
		WillReturnRows(pgxmock.NewRows([]string{"likes"}).AddRow(0))

	likes, err := repo.AdjustLikes(context.Background(), promptID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, likes)
}

func TestAdjustLikesMissingPrompt(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("update prompts").
		WithArgs(promptID, 1).
		WillReturnRows(pgxmock.NewRows([]string{"likes"}))

	_, err := repo.AdjustLikes(context.Background(), promptID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildPromptUpdateAllFields(t *testing.T) {
	name, text := "n", "t"
	query, args, err := buildPromptUpdate(promptID, ownerID, domain.PromptPatch{Name: &name, Text: &text, Attributes: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE prompts SET name = $1, text = $2, attributes = $3 WHERE id = $4::uuid AND user_id = $5::uuid", query)
	assert.Len(t, args, 5)
}
