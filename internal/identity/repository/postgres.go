package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/artista-service/internal/identity"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) CreateUser(ctx context.Context, u *identity.User) error {
	query := `
        INSERT INTO users (id, email, password_hash, created_at)
        VALUES (:id, :email, :password_hash, :created_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, u)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return identity.ErrEmailTaken
	}
	return err
}

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var u identity.User
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`
	if err := r.DB.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
