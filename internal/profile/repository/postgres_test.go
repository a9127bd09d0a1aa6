package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fekuna/artista-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PGRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPGRepository(sqlx.NewDb(db, "postgres")), mock
}

var profileColumns = []string{"user_id", "name", "avatar_url", "phone", "bio"}

func TestFindProfile(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM profiles WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow("u1", "Meera", "a.png", "", "Potter"))
	mock.ExpectQuery(`FROM profiles WHERE user_id = \$1`).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows(profileColumns))

	p, err := repo.FindProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &model.UserProfile{ID: "u1", Name: "Meera", AvatarURL: "a.png", Bio: "Potter"}, p)

	p, err = repo.FindProfile(context.Background(), "u2")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProfileIfAbsentKeepsExisting(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO profiles .* ON CONFLICT \(user_id\) DO NOTHING`).
		WithArgs("u1", "", model.DefaultAvatarURL, "", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM profiles WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(profileColumns).AddRow("u1", "Meera", "a.png", "", ""))

	def := model.DefaultProfile("u1")
	p, err := repo.CreateProfileIfAbsent(context.Background(), &def)
	require.NoError(t, err)
	assert.Equal(t, "Meera", p.Name, "a concurrent first read wins")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindFollowedArtistIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT artist_id FROM followed_artists WHERE user_id = \$1 ORDER BY position`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"artist_id"}).AddRow("a2").AddRow("a1"))

	ids, err := repo.FindFollowedArtistIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, ids)
}

func TestReplaceFollowedArtistIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM followed_artists WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO followed_artists`).
		WithArgs("u1", "a2", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO followed_artists`).
		WithArgs("u1", "a1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceFollowedArtistIDs(context.Background(), "u1", []string{"a2", "a1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceFollowedArtistIDsRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM followed_artists`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO followed_artists`).
		WithArgs("u1", "a1", 0).
		WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := repo.ReplaceFollowedArtistIDs(context.Background(), "u1", []string{"a1"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
