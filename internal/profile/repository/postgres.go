package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type profileRow struct {
	UserID    string `db:"user_id"`
	Name      string `db:"name"`
	AvatarURL string `db:"avatar_url"`
	Phone     string `db:"phone"`
	Bio       string `db:"bio"`
}

func (r profileRow) toModel() *model.UserProfile {
	return &model.UserProfile{
		ID:        r.UserID,
		Name:      r.Name,
		AvatarURL: r.AvatarURL,
		Phone:     r.Phone,
		Bio:       r.Bio,
	}
}

func fromModel(p *model.UserProfile) profileRow {
	return profileRow{
		UserID:    p.ID,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		Phone:     p.Phone,
		Bio:       p.Bio,
	}
}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var row profileRow
	query := `SELECT user_id, name, avatar_url, phone, bio FROM profiles WHERE user_id = $1`
	if err := r.DB.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *PGRepository) CreateProfileIfAbsent(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	query := `
        INSERT INTO profiles (user_id, name, avatar_url, phone, bio)
        VALUES (:user_id, :name, :avatar_url, :phone, :bio)
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.DB.NamedExecContext(ctx, query, fromModel(p)); err != nil {
		return nil, err
	}
	stored, err := r.FindProfile(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("profile %s vanished after insert", p.ID)
	}
	return stored, nil
}

func (r *PGRepository) UpsertProfile(ctx context.Context, p *model.UserProfile) error {
	query := `
        INSERT INTO profiles (user_id, name, avatar_url, phone, bio, updated_at)
        VALUES (:user_id, :name, :avatar_url, :phone, :bio, NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET name = EXCLUDED.name,
            avatar_url = EXCLUDED.avatar_url,
            phone = EXCLUDED.phone,
            bio = EXCLUDED.bio,
            updated_at = NOW()
    `
	_, err := r.DB.NamedExecContext(ctx, query, fromModel(p))
	return err
}

func (r *PGRepository) FindFollowedArtistIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	query := `SELECT artist_id FROM followed_artists WHERE user_id = $1 ORDER BY position`
	if err := r.DB.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PGRepository) ReplaceFollowedArtistIDs(ctx context.Context, userID string, artistIDs []string) (err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM followed_artists WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for i, id := range artistIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO followed_artists (user_id, artist_id, position) VALUES ($1, $2, $3)`,
			userID, id, i,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
